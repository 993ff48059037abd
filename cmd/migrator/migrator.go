package main

import (
	"log"
	"os"

	"github.com/NordCoder/crewcruise/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

func main() {
	dbURL := os.Getenv("DB_DSN")
	if dbURL == "" {
		log.Fatal("DB_DSN is empty")
	}
	command := "up"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("set dialect: %v", err)
	}
	db, err := goose.OpenDBWithDriver("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := goose.Run(command, db, ".", os.Args[min(2, len(os.Args)):]...); err != nil {
		log.Fatalf("migrate %s: %v", command, err)
	}
	log.Printf("migrations: %s OK", command)
}
