package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"task-console/pkg/session"
	"task-console/pkg/task"
)

// PgStore is a PostgreSQL-backed Store.
type PgStore struct {
	pool *pgxpool.Pool
}

// NewPgStore creates a PgStore.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

// EnsureTables creates the accounts, tokens and tasks tables if they don't exist.
func (s *PgStore) EnsureTables(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id            BIGSERIAL PRIMARY KEY,
			first_name    TEXT NOT NULL,
			last_name     TEXT NOT NULL,
			email         TEXT NOT NULL,
			phone_number  TEXT NOT NULL DEFAULT '',
			address       TEXT NOT NULL DEFAULT '',
			gender        TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL DEFAULT 'USER',
			password_hash BYTEA NOT NULL,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS accounts_email_idx ON accounts(lower(email))`,
		`CREATE TABLE IF NOT EXISTS access_tokens (
			token      TEXT PRIMARY KEY,
			email      TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS tasks (
			id             BIGSERIAL PRIMARY KEY,
			task_title     TEXT NOT NULL,
			task_details   TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'TODO',
			period_in_days INTEGER NOT NULL,
			start_date     DATE,
			assignee       TEXT NOT NULL DEFAULT '',
			date_created   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			date_modified  TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS tasks_assignee_idx ON tasks(lower(assignee)) WHERE assignee != ''`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const accountCols = `id, first_name, last_name, email, phone_number, address, gender, role, password_hash, created_at`

func (s *PgStore) CreateAccount(ctx context.Context, a *Account) (*Account, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO accounts (first_name, last_name, email, phone_number, address, gender, role, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+accountCols,
		a.FirstName, a.LastName, a.Email, a.PhoneNumber, a.Address, a.Gender, string(a.Role), a.PasswordHash)
	out, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrExists
		}
		return nil, fmt.Errorf("create account: %w", err)
	}
	return out, nil
}

func (s *PgStore) AccountByEmail(ctx context.Context, email string) (*Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts WHERE lower(email) = lower($1)`, email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s: %w", email, err)
	}
	return a, nil
}

func (s *PgStore) AccountByName(ctx context.Context, firstName, lastName string) (*Account, error) {
	a, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+accountCols+` FROM accounts
		WHERE lower(first_name) = lower($1) AND lower(last_name) = lower($2) ORDER BY id LIMIT 1`, firstName, lastName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account %s %s: %w", firstName, lastName, err)
	}
	return a, nil
}

func (s *PgStore) Accounts(ctx context.Context, pageNum, pageSize int) ([]Account, int64, error) {
	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count accounts: %w", err)
	}
	rows, err := s.pool.Query(ctx, `SELECT `+accountCols+` FROM accounts ORDER BY id LIMIT $1 OFFSET $2`,
		pageSize, offset(pageNum, pageSize))
	if err != nil {
		return nil, 0, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration: %w", err)
	}
	return out, total, nil
}

func (s *PgStore) SaveToken(ctx context.Context, token, email string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO access_tokens (token, email) VALUES ($1, $2)`, token, email)
	if err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

func (s *PgStore) TokenOwner(ctx context.Context, token string) (string, error) {
	var email string
	err := s.pool.QueryRow(ctx, `SELECT email FROM access_tokens WHERE token = $1`, token).Scan(&email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("token owner: %w", err)
	}
	return email, nil
}

const taskCols = `t.id, t.task_title, t.task_details, t.status, t.period_in_days, t.start_date, t.assignee,
	COALESCE(a.first_name, ''), COALESCE(a.last_name, ''), t.date_created, t.date_modified`

const taskFrom = ` FROM tasks t LEFT JOIN accounts a ON lower(a.email) = lower(t.assignee) AND t.assignee != ''`

func (s *PgStore) CreateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO tasks (task_title, task_details, status, period_in_days, start_date, assignee)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		t.Title, t.Details, string(t.Status), t.PeriodInDays, dateArg(t.StartDate), t.Email).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return s.GetTask(ctx, id)
}

func (s *PgStore) GetTask(ctx context.Context, id int64) (*task.Task, error) {
	t, err := scanTask(s.pool.QueryRow(ctx, `SELECT `+taskCols+taskFrom+` WHERE t.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return t, nil
}

func (s *PgStore) UpdateTask(ctx context.Context, t *task.Task) (*task.Task, error) {
	now := time.Now().Truncate(time.Microsecond)
	tag, err := s.pool.Exec(ctx, `
		UPDATE tasks SET task_title = $1, task_details = $2, status = $3, period_in_days = $4,
			start_date = $5, assignee = $6, date_modified = $7
		WHERE id = $8`,
		t.Title, t.Details, string(t.Status), t.PeriodInDays, dateArg(t.StartDate), t.Email, now, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update task %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return s.GetTask(ctx, t.ID)
}

func (s *PgStore) DeleteTask(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PgStore) Tasks(ctx context.Context, assignee string, pageNum, pageSize int) ([]task.Task, int64, error) {
	where := ""
	args := []any{}
	if assignee != "" {
		where = ` WHERE lower(t.assignee) = lower($1)`
		args = append(args, assignee)
	}

	var total int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM tasks t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(`SELECT %s%s%s ORDER BY t.id LIMIT $%d OFFSET $%d`, taskCols, taskFrom, where, n+1, n+2)
	args = append(args, pageSize, offset(pageNum, pageSize))
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var out []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("row iteration: %w", err)
	}
	return out, total, nil
}

func scanAccount(row pgx.Row) (*Account, error) {
	var a Account
	var role string
	if err := row.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Email, &a.PhoneNumber, &a.Address, &a.Gender, &role, &a.PasswordHash, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Role = session.Role(role)
	return &a, nil
}

func scanTask(row pgx.Row) (*task.Task, error) {
	var t task.Task
	var status string
	var start *time.Time
	var created time.Time
	if err := row.Scan(&t.ID, &t.Title, &t.Details, &status, &t.PeriodInDays, &start, &t.Email,
		&t.FirstName, &t.LastName, &created, &t.DateModified); err != nil {
		return nil, err
	}
	t.Status = task.Status(status)
	t.DateCreated = &created
	if start != nil {
		t.StartDate = task.NewDate(*start)
	}
	return &t, nil
}

func dateArg(d task.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time
}

func offset(pageNum, pageSize int) int {
	if pageNum < 0 || pageSize <= 0 {
		return 0
	}
	if pageNum > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return pageNum * pageSize
}
