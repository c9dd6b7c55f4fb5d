package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"docingest/internal/config"
	"docingest/internal/dbs/postgres"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

func main() {
	var migrationsPath string
	var down bool

	flag.StringVar(&migrationsPath, "migrations-path", "./migrations", "path to migrations")
	flag.BoolVar(&down, "down", false, "roll back every migration")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	dbCfg := config.MustLoadDB()

	dbURL := postgres.Config{
		Addr:     dbCfg.Addr,
		Port:     dbCfg.Port,
		User:     dbCfg.User,
		Password: dbCfg.Password,
		DB:       dbCfg.DB,
	}.URL()

	m, err := migrate.New(fmt.Sprintf("file://%s", migrationsPath), dbURL)
	if err != nil {
		log.Error("failed to init migrator", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer m.Close()

	if down {
		err = m.Down()
	} else {
		err = m.Up()
	}

	if err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			log.Info("no migrations to apply")
			return
		}
		log.Error("failed to apply migrations", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log.Info("migrations applied", slog.Bool("down", down))
}
