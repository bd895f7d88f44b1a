package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/db"
	"github.com/Skotchmaster/storefront/internal/es"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/middleware/csrf"
	loggingmw "github.com/Skotchmaster/storefront/internal/middleware/logging"
	sessionmw "github.com/Skotchmaster/storefront/internal/middleware/session"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/session"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type eventPublisher interface {
	service.Publisher
	Close() error
}

func main() {
	cfg := config.LoadConfig()
	cfg.Validate()

	logger := logging.New(cfg.LogLevel).With("service", cfg.ServiceName)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(openCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		log.Fatalf("db migrate: %v", err)
	}

	rdb, err := session.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	sessions := session.NewRedisStore(rdb, cfg.SessionTTL)

	var events eventPublisher = mykafka.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		events = mykafka.NewProducer(cfg.KafkaBrokers)
	} else {
		logger.Info("kafka_disabled", "reason", "KAFKA_BROKERS not set")
	}

	var index service.ProductIndex
	if cfg.ESURL != "" {
		client, err := es.NewClient(ctx, cfg)
		if err != nil {
			logger.Error("es_unavailable", "reason", "search falls back to database", "error", err)
		} else {
			index = &es.ProductIndex{Client: client, Index: cfg.ESIndex}
		}
	}

	var notifier service.Notifier = notify.LogNotifier{}
	if cfg.SMTPHost != "" {
		notifier = notify.NewMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
		})
	}

	validate := transport.NewValidator()

	r := &repo.GormRepo{DB: gdb}
	catalogSvc := &service.CatalogService{Repo: r, Index: index, Events: events}
	cartSvc := &service.CartService{Repo: r, Events: events}
	promoSvc := &service.PromoService{Repo: r, Events: events}
	orderSvc := &service.OrderService{Repo: r, Events: events, WebhookSecret: cfg.PaymentWebhookSecret}
	checkoutSvc := &service.CheckoutService{
		Repo:        r,
		Carts:       cartSvc,
		Promos:      promoSvc,
		Notifier:    notifier,
		Events:      events,
		Validate:    validate,
		PaymentMode: cfg.PaymentMode,
	}

	var csrfCfg *csrf.Config
	if cfg.CSRFEnabled {
		csrfCfg = &csrf.Config{Secure: cfg.SessionCookieSecure, EnforceSameOrigin: cfg.CSRFSameOrigin}
	}

	e := echo.New()
	e.HideBanner = true
	e.Validator = &transport.EchoValidator{V: validate}
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.Secure())
	e.Use(echomw.CORS())

	httpserver.Register(e, &httpserver.Deps{
		CatalogHandler:  &httpserver.CatalogHTTP{Svc: catalogSvc},
		CartHandler:     &httpserver.CartHTTP{Svc: cartSvc, Promos: promoSvc, Sessions: sessions},
		CheckoutHandler: &httpserver.CheckoutHTTP{Svc: checkoutSvc, Orders: orderSvc, Sessions: sessions},
		PaymentHandler:  &httpserver.PaymentHTTP{Orders: orderSvc},
		AdminHandler:    &httpserver.AdminHTTP{Catalog: catalogSvc, Promos: promoSvc, Orders: orderSvc},
		Session: sessionmw.Config{
			Store:  sessions,
			Secret: cfg.SessionSecret,
			TTL:    cfg.SessionTTL,
			Secure: cfg.SessionCookieSecure,
		},
		CSRF:              csrfCfg,
		AdminUser:         cfg.AdminUser,
		AdminPasswordHash: cfg.AdminPasswordHash,
		PromoApplyRate:    cfg.PromoApplyRate,
		Ready: func(ctx context.Context) error {
			if err := db.Ping(ctx, gdb); err != nil {
				return err
			}
			return rdb.Ping(ctx).Err()
		},
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.ServerPort),
		Handler:           e,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 3 * time.Second,
	}

	go func() {
		logger.Info("storefront_listening", "addr", srv.Addr, "payment_mode", cfg.PaymentMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = events.Close()
	_ = rdb.Close()
	_ = db.Close(gdb)

	logger.Info("storefront_stopped")
}
