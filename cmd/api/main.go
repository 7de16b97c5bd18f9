package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/transitops/user-service/internal/adapters/httpapi"
	memidempotency "github.com/transitops/user-service/internal/adapters/memory/idempotency"
	memuserstore "github.com/transitops/user-service/internal/adapters/memory/userstore"
	postgres "github.com/transitops/user-service/internal/adapters/postgres"
	pgidempotency "github.com/transitops/user-service/internal/adapters/postgres/idempotency"
	pguserstore "github.com/transitops/user-service/internal/adapters/postgres/userstore"
	"github.com/transitops/user-service/internal/app/auth"
	"github.com/transitops/user-service/internal/app/bootstrap"
	"github.com/transitops/user-service/internal/app/users"
	"github.com/transitops/user-service/internal/domain"
	"github.com/transitops/user-service/internal/platform/auth/jwtverifier"
	platformclock "github.com/transitops/user-service/internal/platform/clock"
	"github.com/transitops/user-service/internal/platform/config"
	"github.com/transitops/user-service/internal/platform/password"
	idempotencyport "github.com/transitops/user-service/internal/ports/out/idempotency"
	userstoreport "github.com/transitops/user-service/internal/ports/out/userstore"
)

func main() {
	appCfg, err := config.LoadAppConfigFromEnv()
	if err != nil {
		slog.Error("invalid app config", slog.Any("error", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appCfg.SlogLevel()}))
	slog.SetDefault(log)

	tokenCfg, err := config.LoadTokenConfigFromEnv()
	if err != nil {
		log.Error("invalid token config", slog.Any("error", err))
		os.Exit(1)
	}

	clk := platformclock.NewSystemClock()
	hasher, err := password.NewHasher(appCfg.BcryptCost)
	if err != nil {
		log.Error("invalid password hashing config", slog.Any("error", err))
		os.Exit(1)
	}
	lockout := userstoreport.LockoutPolicy{
		MaxFailedAttempts: appCfg.Lockout.MaxFailedAttempts,
		Duration:          appCfg.Lockout.Duration,
	}

	var (
		store     userstoreport.Store
		idemStore idempotencyport.Store
		cleanup   func()
	)

	switch appCfg.Storage {
	case "postgres":
		pool, err := postgres.NewPool(context.Background(), appCfg.DatabaseURL, postgres.PoolOptions{
			MaxConns: appCfg.DatabaseMaxConn,
		})
		if err != nil {
			log.Error("invalid postgres config", slog.Any("error", err))
			os.Exit(1)
		}
		cleanup = pool.Close

		if err := postgres.Migrate(context.Background(), pool); err != nil {
			pool.Close()
			log.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
		store = pguserstore.NewRepo(pool, hasher, clk, lockout)
		idemStore = pgidempotency.NewStore(pool)
	default:
		store = memuserstore.NewRepo(hasher, clk, lockout)
		idemStore = memidempotency.NewStore()
	}

	if cleanup != nil {
		defer cleanup()
	}

	if err := seed(context.Background(), log, appCfg, store, hasher, clk); err != nil {
		log.Error("bootstrap", slog.Any("error", err))
		if cleanup != nil {
			cleanup()
		}
		os.Exit(1)
	}

	issuer, err := auth.NewIssuer(tokenCfg, store, clk)
	if err != nil {
		log.Error("invalid token config", slog.Any("error", err))
		os.Exit(1)
	}
	verifier := auth.NewVerifier(store, store, log)
	verifier.LockoutOnFailure = appCfg.Lockout.OnFailure

	authSvc := auth.NewService(verifier, issuer, log)
	usersSvc := users.NewService(store, hasher, clk, log)

	handler := httpapi.NewRouter(
		httpapi.NewServer(authSvc, usersSvc, idemStore, log),
		httpapi.RouterOptions{
			AuthMiddleware: httpapi.NewAuthMiddleware(jwtverifier.New(tokenCfg)),
			Logger:         log,
		},
	)

	srv := &http.Server{
		Addr:              ":" + appCfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info("api listening", slog.String("addr", srv.Addr), slog.String("storage", appCfg.Storage))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func seed(ctx context.Context, log *slog.Logger, cfg config.AppConfig, store userstoreport.Store, hasher *password.Hasher, clk platformclock.SystemClock) error {
	seeder := bootstrap.NewSeeder(store, hasher, clk, log)
	if _, err := seeder.EnsureRoles(ctx, domain.DefaultRoles()...); err != nil {
		return err
	}
	if !cfg.Bootstrap.Enabled {
		return nil
	}
	_, err := seeder.EnsureAdmin(ctx, bootstrap.AdminConfig{
		Role:     domain.RoleName(cfg.Bootstrap.Role),
		Email:    cfg.Bootstrap.Email,
		Password: cfg.Bootstrap.Password,
		FullName: cfg.Bootstrap.FullName,
	})
	return err
}
