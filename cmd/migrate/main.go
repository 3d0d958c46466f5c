package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"watopic/internal/migrations"

	_ "github.com/mattn/go-sqlite3"
)

// Applies the embedded schema to a database file, creating it when absent.
// The schema statements are idempotent, so re-running is safe.
func main() {
	dbPath := flag.String("db", "./watopic.db", "Path to the database file")
	flag.Parse()

	db, err := sql.Open("sqlite3", *dbPath+"?_foreign_keys=on")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if _, err := db.Exec(migrations.GetInitialSchema()); err != nil {
		log.Fatalf("Failed to apply schema: %v", err)
	}

	fmt.Printf("Schema applied to %s\n", *dbPath)
}
