package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/samnmbuguah/FundingRate/internal/config"
	"github.com/samnmbuguah/FundingRate/internal/database"
)

func main() {
	var (
		configPath = flag.String("config", "configs/config.yaml", "configuration file path")
		dir        = flag.String("migrations", "internal/database/migrations", "migrations directory")
		up         = flag.Bool("up", false, "apply pending migrations")
		down       = flag.Bool("down", false, "roll back all migrations")
		version    = flag.Bool("version", false, "print the current migration version")
		force      = flag.Int("force", -1, "force the migration version to repair a dirty state")
		drop       = flag.Bool("drop", false, "drop every table in the database")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(&database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.DBName,
		SSLMode:  cfg.Database.SSLMode,
		MaxOpen:  cfg.Database.MaxOpen,
		MaxIdle:  cfg.Database.MaxIdle,
		Timeout:  cfg.Database.Timeout.Duration(),
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, *dir)
	if err != nil {
		log.Fatalf("failed to create migrator: %v", err)
	}
	defer migrator.Close()

	switch {
	case *up:
		runUp(migrator)
	case *down:
		runDown(migrator)
	case *version:
		showVersion(migrator)
	case *force >= 0:
		forceVersion(migrator, *force)
	case *drop:
		dropAll(migrator)
	default:
		runUp(migrator)
	}
}

func runUp(m *database.Migrator) {
	if err := m.Up(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	fmt.Println("migrations applied")
}

func runDown(m *database.Migrator) {
	if err := m.Down(); err != nil {
		log.Fatalf("rollback failed: %v", err)
	}
	fmt.Println("migrations rolled back")
}

func showVersion(m *database.Migrator) {
	version, err := m.Version()
	if err != nil {
		log.Fatalf("failed to read migration version: %v", err)
	}
	fmt.Printf("current migration version: %d\n", version)
}

func forceVersion(m *database.Migrator, version int) {
	if err := m.Force(version); err != nil {
		log.Fatalf("failed to force migration version: %v", err)
	}
	fmt.Printf("migration version forced to %d\n", version)
}

func dropAll(m *database.Migrator) {
	log.Println("warning: dropping every table in the database")
	if err := m.Drop(); err != nil {
		log.Fatalf("drop failed: %v", err)
	}
	fmt.Println("database schema dropped")
}
