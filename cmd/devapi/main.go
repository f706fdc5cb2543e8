package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"task-console/internal/api"
	"task-console/internal/db"
	"task-console/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("devapi: no .env loaded: %v", err)
	}
	ctx := context.Background()

	var st store.Store
	switch kind := os.Getenv("STORE"); kind {
	case "", "memory":
		st = store.NewMemory()
		log.Printf("devapi: using in-memory store")
	case "postgres":
		pool, err := db.Connect(ctx)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		pg := store.NewPgStore(pool)
		if err := pg.EnsureTables(ctx); err != nil {
			log.Fatalf("ensure tables: %v", err)
		}
		st = pg
	default:
		log.Fatalf("devapi: unknown STORE %q (want memory or postgres)", kind)
	}

	var origins []string
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins = strings.Split(v, ",")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "2024"
	}

	server := api.New(st)
	log.Printf("devapi listening on :%s%s", port, api.Prefix)
	if err := http.ListenAndServe(":"+port, server.Handler(origins, os.Stdout)); err != nil {
		log.Fatalf("listen: %v", err)
	}
}
