// Command promogen adds a batch of single-use promotion codes and prints them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
)

func main() {
	count := flag.Int("n", service.DefaultPromoBatch, "number of codes to generate")
	flag.Parse()

	cfg := config.LoadConfig()
	config.MustNonEmpty(cfg.DatabaseURL, "DATABASE_URL")

	logger := logging.New(cfg.LogLevel).With("service", "promogen")
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(logging.IntoContext(context.Background(), logger), time.Minute)
	defer cancel()

	gdb, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	defer db.Close(gdb)

	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	svc := &service.PromoService{Repo: &repo.GormRepo{DB: gdb}}
	codes, err := svc.Generate(ctx, *count)
	if err != nil {
		log.Fatalf("generate: %v", err)
	}

	for _, c := range codes {
		fmt.Printf("%s\t%s\n", c.Code, c.DiscountAmount.StringFixed(2))
	}
	logger.Info("promotions_generated", "requested", *count, "created", len(codes))
}
