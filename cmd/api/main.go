package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/loyalty"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session"
	sessionrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/session/repo"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user"
	userrepo "github.com/ovaphlow/pitchfork/service-loyalty-go/internal/user/repo"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/cache"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-loyalty-go/pkg/utilities"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	lg, err := utilities.Init(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-loyalty-go")

	// init db
	primaryDB, err := database.Connect(cfg.Primary)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer primaryDB.Close()
	primaryPool := userrepo.NewPool(primaryDB)

	replicaPool := primaryPool
	if cfg.HasReplica() {
		replicaDB, err := database.Connect(cfg.Replica)
		if err != nil {
			sugar.Fatalf("replica connect: %v", err)
		}
		defer replicaDB.Close()
		replicaPool = userrepo.NewPool(replicaDB)
	}

	if cfg.EnsureSchema {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Primary.Timeout)
		err := primaryPool.EnsureTable(ctx)
		cancel()
		if err != nil {
			sugar.Fatalf("ensure users table: %v", err)
		}
	}

	rdb, err := cache.Connect(cfg.Redis)
	if err != nil {
		sugar.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	sessions, err := session.NewService(session.Config{
		Secret:   cfg.Token.Secret,
		Lifetime: cfg.Token.Lifetime,
		Issuer:   cfg.Token.Issuer,
	}, sessionrepo.NewRevocationRepo(rdb, cfg.RevokedPrefix))
	if err != nil {
		sugar.Fatalf("session service: %v", err)
	}
	users, err := user.NewUserService(user.BcryptHasher{Cost: 12})
	if err != nil {
		sugar.Fatalf("user service: %v", err)
	}
	ids, err := utilities.NewRequestIDs(cfg.SnowflakeNode)
	if err != nil {
		sugar.Fatalf("request ids: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handler := router.RegisterRoutes(router.Deps{
		Logger:     sugar,
		Sessions:   sessions,
		Users:      users,
		Loyalty:    loyalty.NewService(nil),
		Primary:    user.NewAcquirer(primaryPool),
		Replica:    user.NewAcquirer(replicaPool),
		RequestIDs: ids,
	})
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	// run server in background
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()
	sugar.Infow("listening", "addr", cfg.HTTP.Addr, "replica", cfg.HasReplica(), "token_lifetime", cfg.Token.Lifetime)

	<-ctx.Done()

	sugar.Info("shutting down")

	doneCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
