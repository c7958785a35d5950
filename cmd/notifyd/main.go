package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clanhub/notifyd/internal/api"
	"github.com/clanhub/notifyd/internal/auth"
	"github.com/clanhub/notifyd/internal/config"
	"github.com/clanhub/notifyd/internal/fcm"
	"github.com/clanhub/notifyd/internal/notify"
	"github.com/clanhub/notifyd/internal/session"
	"github.com/clanhub/notifyd/internal/store"
)

func main() {
	// Load .env file if exists
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting notifyd",
		zap.String("env", cfg.Server.Env),
		zap.String("port", cfg.Server.Port),
		zap.String("backend", cfg.Backend.Type),
	)

	ctx := context.Background()

	// Backend selection happens exactly once; everything downstream sees
	// only the Accessor interface.
	backend, closeBackend, err := initBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to initialize storage backend", zap.Error(err))
	}
	defer closeBackend()

	if _, err := backend.Exists(ctx, "notifications"); err != nil {
		logger.Warn("Storage backend probe failed, continuing anyway", zap.Error(err))
	}

	jwtManager := auth.NewManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	holder := session.NewHolder()
	if cfg.Session.Token != "" {
		claims, err := jwtManager.Validate(cfg.Session.Token)
		if err != nil {
			logger.Warn("Configured session token is invalid, polling idles until login", zap.Error(err))
		} else {
			sess := claims.Session()
			holder.Set(sess)
			logger.Info("Session restored from config",
				zap.String("user", sess.Username),
				zap.String("clan", sess.Clan),
			)
		}
	} else {
		logger.Info("No session configured, polling idles until POST /api/v1/session")
	}

	clock := notify.RealClock()
	engine := notify.NewEngine(backend, holder, notify.PollerConfig{
		Interval:           cfg.Poll.Interval,
		ChatSection:        cfg.Poll.ChatSection,
		ClanChatSection:    cfg.Poll.ClanChatSection,
		ModerationSections: cfg.Poll.ModerationSections,
	}, clock, logger)

	if err := engine.Feed.Load(ctx); err != nil {
		logger.Warn("Failed to load persisted feed, starting empty", zap.Error(err))
	}

	hub := api.NewHub(logger)
	go hub.Run()

	engine.Feed.OnChange(func() {
		hub.Broadcast(api.WSEvent{
			Type:    "notifications_changed",
			Payload: map[string]int{"unreadCount": engine.Feed.UnreadCount()},
		})
	})
	engine.Feed.OnPopup(func(rec notify.Record) {
		hub.Broadcast(api.WSEvent{Type: "popup", Payload: rec})
	})

	// Optional FCM mirror of popups.
	if cfg.FCM.DeviceToken != "" {
		fcmClient, err := fcm.NewClient(ctx, logger, cfg.FCM.CredentialsFile, cfg.FCM.DeviceToken)
		if err != nil {
			logger.Warn("Failed to initialize FCM client, popups stay local", zap.Error(err))
		} else {
			logger.Info("FCM popup mirroring enabled")
			engine.Feed.OnPopup(func(rec notify.Record) {
				pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				_ = fcmClient.Push(pushCtx, rec.Title, rec.Body, map[string]string{
					"kind":    string(rec.Kind),
					"section": rec.Section,
				})
			})
		}
	}

	notificationHandler := api.NewNotificationHandler(engine, logger)
	sectionHandler := api.NewSectionHandler(engine, clock, logger)
	sessionHandler := api.NewSessionHandler(jwtManager, holder, logger)
	healthHandler := api.NewHealthHandler()

	router := api.NewRouter(notificationHandler, sectionHandler, sessionHandler, healthHandler, hub, jwtManager, logger)
	r := router.Setup()

	engine.Poller.Start()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")

	// Stop polling first so no scan pass mutates the feed during shutdown.
	engine.Poller.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}

	logger.Info("Stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	var zcfg zap.Config
	if cfg.IsProduction() {
		zcfg = zap.NewProductionConfig()
	} else {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}

// initBackend builds the configured Accessor and returns a close function.
func initBackend(ctx context.Context, cfg *config.Config) (store.Accessor, func(), error) {
	switch cfg.Backend.Type {
	case config.BackendFirebase:
		if cfg.Backend.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("FIREBASE_DATABASE_URL is required for the firebase backend")
		}
		fb, err := store.NewFirebaseStore(ctx, cfg.Backend.DatabaseURL, cfg.Backend.CredentialsFile)
		if err != nil {
			return nil, nil, err
		}
		return fb, func() {}, nil

	case config.BackendLocal:
		if dir := filepath.Dir(cfg.Backend.SQLitePath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, nil, fmt.Errorf("creating data directory: %w", err)
			}
		}
		local, err := store.NewSQLiteStore(cfg.Backend.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return local, func() { local.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend type %q", cfg.Backend.Type)
	}
}
