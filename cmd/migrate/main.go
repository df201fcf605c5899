package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/samirrijal/rihla/internal/pkg/config"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	cfg, err := config.Load("rihla-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	dir := os.Getenv("RIHLA_MIGRATIONS_DIR")
	if dir == "" {
		dir = "migrations"
	}

	switch os.Args[1] {
	case "up":
		runMigrations(ctx, pool, upFiles(dir))
	case "down":
		runMigrations(ctx, pool, downFiles(dir))
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}
}

// upFiles lists NNN_name.sql in order, skipping *.down.sql.
func upFiles(dir string) []string {
	all, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		log.Fatalf("glob: %v", err)
	}
	var files []string
	for _, f := range all {
		if !strings.HasSuffix(f, ".down.sql") {
			files = append(files, f)
		}
	}
	sort.Strings(files)
	return files
}

// downFiles lists NNN_name.down.sql in reverse order.
func downFiles(dir string) []string {
	files, err := filepath.Glob(filepath.Join(dir, "*.down.sql"))
	if err != nil {
		log.Fatalf("glob: %v", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files
}

func runMigrations(ctx context.Context, pool *pgxpool.Pool, files []string) {
	if len(files) == 0 {
		log.Println("no migrations found")
		return
	}

	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			log.Fatalf("read %s: %v", f, err)
		}

		_, err = pool.Exec(ctx, string(data))
		if err != nil {
			log.Fatalf("exec %s: %v", f, err)
		}

		fmt.Printf("OK  %s\n", f)
	}

	log.Println("all migrations applied")
}
