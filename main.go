package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cppla/organizer/config"
	"github.com/cppla/organizer/middleware"
	"github.com/cppla/organizer/routes"
	"github.com/cppla/organizer/services"
	"github.com/cppla/organizer/utils"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger early
	log, err := utils.InitLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	st, err := config.OpenStore(context.Background(), cfg, log)
	if err != nil {
		log.Fatal("open store", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer func() { _ = st.Close(context.Background()) }()

	rc := utils.NewRedisClient(cfg)
	if rc != nil {
		defer func() { _ = rc.Close() }()
	}
	revoked := utils.NewRevocationList(rc)
	tokens := utils.NewTokenSigner(cfg.JWTSecret, cfg.TokenTTL())

	r := routes.SetupRouter(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Posts:       services.NewPostService(st, st, services.PostOptions{SanitizeHTML: cfg.SanitizeHTML}, log.Named("posts")),
		Credentials: services.NewCredentialService(st, tokens, revoked, cfg.BcryptCost, log.Named("auth")),
		Verifier:    middleware.NewIdentityVerifier(tokens, revoked, cfg.ExternalTokenMinLength, cfg.AuthStrict, log.Named("identity")),
	})

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("store", cfg.StoreDriver))
	if err := utils.GraceServer(":"+cfg.AppPort, r, log); err != nil {
		log.Error("server stopped with error", zap.Error(err))
	}
}
