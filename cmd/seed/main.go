// Command seed upserts the biomarker catalogue, partners and products.
//
//	go run ./cmd/seed -file catalogue.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/yungbote/biomarker-backend/internal/data/db"
	"github.com/yungbote/biomarker-backend/internal/data/repos"
	"github.com/yungbote/biomarker-backend/internal/data/seed"
	"github.com/yungbote/biomarker-backend/internal/platform/logger"
)

func main() {
	file := flag.String("file", "", "seed YAML (defaults to the bundled catalogue)")
	migrate := flag.Bool("migrate", true, "run auto-migration first")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall timeout")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(log, *file, *migrate, *timeout); err != nil {
		log.Error("seed failed", "error", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *logger.Logger, file string, migrate bool, timeout time.Duration) error {
	f, err := seed.Load(file)
	if err != nil {
		return err
	}

	pg, err := db.NewPostgresService(log)
	if err != nil {
		return err
	}
	defer pg.Close()
	theDB := pg.DB()
	if migrate {
		if err := db.AutoMigrateAll(theDB); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s := seed.NewSeeder(log, repos.NewBiomarkerRepo(theDB, log), repos.NewPartnerRepo(theDB, log), repos.NewProductRepo(theDB, log))
	_, err = s.Apply(ctx, f)
	return err
}
