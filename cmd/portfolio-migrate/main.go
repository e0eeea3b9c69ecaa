package main

import (
	"flag"
	"log"

	"go.uber.org/zap"

	"github.com/noah-isme/student-portfolio-api/migrations"
	"github.com/noah-isme/student-portfolio-api/pkg/config"
	"github.com/noah-isme/student-portfolio-api/pkg/database"
	"github.com/noah-isme/student-portfolio-api/pkg/logger"
)

func main() {
	flag.Parse()
	command, args := "up", []string(nil)
	if flag.NArg() > 0 {
		command, args = flag.Arg(0), flag.Args()[1:]
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := migrations.Run(db.DB, command, args...); err != nil {
		logr.Fatal("migration failed", zap.String("command", command), zap.Error(err))
	}
	logr.Info("migration finished", zap.String("command", command))
}
