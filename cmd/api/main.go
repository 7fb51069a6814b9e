package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"

	"github.com/ovaphlow/pitchfork/service-member-go/internal/blob"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/config"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/member"
	memberrepo "github.com/ovaphlow/pitchfork/service-member-go/internal/member/repo"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/metrics"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/router"
	"github.com/ovaphlow/pitchfork/service-member-go/internal/token"
	"github.com/ovaphlow/pitchfork/service-member-go/pkg/database"
	"github.com/ovaphlow/pitchfork/service-member-go/pkg/utilities"
)

func main() {
	// load .env file if present so os.Getenv picks values from it
	// this is best-effort: if no .env exists, continue (use defaults or real env)
	_ = godotenv.Load()

	lg, err := utilities.Init(utilities.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer lg.Sync()

	sugar := lg.Sugar()
	sugar.Info("starting service-member-go")

	cfg, err := config.Load()
	if err != nil {
		sugar.Fatalf("config: %v", err)
	}

	// graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbCfg := database.ConfigFromEnv()
	sqlDB, err := database.Connect(dbCfg)
	if err != nil {
		sugar.Fatalf("db connect: %v", err)
	}
	defer sqlDB.Close()

	n, err := database.Migrate(ctx, sqlDB, dbCfg.Driver)
	if err != nil {
		sugar.Fatalf("db migrate: %v", err)
	}
	sugar.Infow("migrations applied", "count", n, "driver", dbCfg.Driver)

	// sqlx picks the bind style from the driver name
	sqlxDB := sqlx.NewDb(sqlDB, dbCfg.Driver)

	issuer, err := token.NewIssuer(cfg.JWTSecret)
	if err != nil {
		sugar.Fatalf("token issuer: %v", err)
	}

	store, err := blob.New(ctx, cfg.Blob())
	if err != nil {
		sugar.Fatalf("blob store: %v", err)
	}
	var uploadDir string
	if disk, ok := store.(*blob.DiskStore); ok {
		uploadDir = disk.Dir()
	}

	m := metrics.New()
	svc := member.NewService(memberrepo.NewMemberRepo(sqlxDB), issuer, store, member.BcryptHasher{Cost: cfg.BcryptCost})
	svc.HashTimeout = cfg.HashTimeout
	svc.UploadTimeout = cfg.UploadTimeout
	svc.Metrics = m
	svc.Logger = sugar.Named("member")

	h := member.NewHandler(svc, sugar.Named("http"))
	h.MaxUploadBytes = cfg.MaxUploadBytes

	handler := router.RegisterRoutes(sugar, router.Deps{
		Member:      h,
		Metrics:     m,
		UploadDir:   uploadDir,
		CORSOrigins: cfg.CORSOrigins,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.UploadTimeout + 10*time.Second,
		WriteTimeout:      cfg.UploadTimeout + 20*time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		sugar.Infow("listening", "addr", cfg.HTTPAddr, "blob_backend", cfg.BlobBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalf("http server failed: %v", err)
		}
	}()

	<-ctx.Done()

	sugar.Info("shutting down")

	// give a short grace period for in-flight requests
	doneCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(doneCtx); err != nil {
		sugar.Warnf("http server shutdown failed: %v", err)
	}

	sugar.Info("goodbye")
}
