// Package page describes a window over a server-ordered collection.
package page

// Page is one window of a collection as returned by the API. The server owns
// ordering and totals; clients render Content as-is.
type Page[T any] struct {
	PageNum      int   `json:"pageNum"`
	PageSize     int   `json:"pageSize"`
	TotalElement int64 `json:"totalElement"`
	Last         bool  `json:"last"`
	Content      []T   `json:"content"`
}

// Clamp floors a page number at zero.
func Clamp(n int) int {
	if n < 0 {
		return 0
	}
	return n
}

// IsLast reports whether a window starting at pageNum*pageSize reaches the end
// of a collection holding total elements.
func IsLast(pageNum, pageSize int, total int64) bool {
	if pageSize <= 0 {
		return true
	}
	return int64(pageNum) >= (total-1)/int64(pageSize)
}
