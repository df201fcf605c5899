package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	badgerstore "github.com/samirrijal/rihla/internal/adapters/badger"
	"github.com/samirrijal/rihla/internal/adapters/http"
	"github.com/samirrijal/rihla/internal/adapters/memory"
	natsadapter "github.com/samirrijal/rihla/internal/adapters/nats"
	"github.com/samirrijal/rihla/internal/adapters/postgres"
	"github.com/samirrijal/rihla/internal/adapters/transport"
	"github.com/samirrijal/rihla/internal/adapters/valkey"
	"github.com/samirrijal/rihla/internal/core/ports"
	"github.com/samirrijal/rihla/internal/core/usecases"
	"github.com/samirrijal/rihla/internal/pkg/config"
	"github.com/samirrijal/rihla/internal/pkg/logging"
	"github.com/samirrijal/rihla/internal/pkg/telemetry"
	"github.com/samirrijal/rihla/internal/pkg/vault"
)

func main() {
	cfg, err := config.Load("rihla-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Storage for the location cache and the vault record
	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	defer store.close()
	slog.Info("storage ready", "driver", cfg.Storage.Driver)

	// Notifications over NATS
	var notifier ports.NotificationService
	var relay http.NotificationRelay
	deps := &http.Dependencies{Storage: store.pinger, StorageName: cfg.Storage.Driver}
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable, notifications will only be logged", "error", err)
		} else {
			defer pub.Close()
			notifier = pub

			// Separate connection for the WebSocket relay
			natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
			if err != nil {
				slog.Warn("nats ws conn unavailable", "error", err)
			} else {
				sub := natsadapter.NewSubscriber(natsConn)
				defer sub.Close()
				relay = sub
				deps.NATS = natsConn
			}
		}
	}

	// Use cases
	api := transport.New(cfg.Transport.BaseURL, cfg.Transport.Timeout)

	vaultOpts := []vault.Option{vault.WithIterations(cfg.Vault.Iterations)}
	if cfg.Vault.Salt != "" {
		vaultOpts = append(vaultOpts, vault.WithSalt([]byte(cfg.Vault.Salt)))
	}

	sessions := usecases.NewSessionManager(usecases.SessionDeps{
		API:      api,
		Auth:     http.AuthProvider(),
		Notifier: notifier,
		Logger:   slog.Default(),
	}, usecases.SessionConfig{
		AutoResolvePayment: cfg.Booking.AutoResolvePayment,
		ConfirmRedirect:    cfg.Booking.ConfirmRedirect,
	}, cfg.Session.IdleTTL)
	defer sessions.Close()
	go sessions.Run(ctx, cfg.Session.SweepInterval)

	deps.Sessions = sessions
	deps.Locations = usecases.NewLocationService(api, store.cache, cfg.Transport.Language)
	deps.Credentials = usecases.NewCredentialService(vault.New(vaultOpts...), store.cache)
	deps.Relay = relay

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "Rihla API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.AllowOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Accept-Language, Authorization, " + http.ClientIDHeader,
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

type storage struct {
	cache  ports.CacheService
	pinger http.Pinger
	close  func()
}

// openStorage builds the key-value store selected by storage.driver.
func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageValkey:
		c, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			return nil, err
		}
		return &storage{cache: c, pinger: c, close: c.Close}, nil

	case config.StorageBadger:
		s, err := badgerstore.Open(cfg.Storage.BadgerPath)
		if err != nil {
			return nil, err
		}
		return &storage{cache: s, close: func() { _ = s.Close() }}, nil

	case config.StoragePostgres:
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			return nil, err
		}
		kv := postgres.NewKVStore(db)
		go purgeExpired(ctx, kv, cfg.Session.SweepInterval)
		return &storage{cache: kv, pinger: db, close: db.Close}, nil

	default:
		return &storage{cache: memory.New(), close: func() {}}, nil
	}
}

// purgeExpired drops expired location cache rows; reads already ignore them.
func purgeExpired(ctx context.Context, kv *postgres.KVStore, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, err := kv.PurgeExpired(ctx); err != nil {
				slog.Warn("kv purge failed", "error", err)
			} else if n > 0 {
				slog.Debug("kv purge", "rows", n)
			}
		}
	}
}
