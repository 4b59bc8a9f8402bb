package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/hungpv1995/community-board/internal/app"
	"github.com/hungpv1995/community-board/internal/auth"
	"github.com/hungpv1995/community-board/internal/config"
	"github.com/hungpv1995/community-board/internal/handlers"
	"github.com/hungpv1995/community-board/internal/notify"
	"github.com/hungpv1995/community-board/internal/repository"
	"github.com/hungpv1995/community-board/internal/routes"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	ctx := context.Background()
	a, err := app.Open(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer a.Close()

	if err := a.DB.Migrate(); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	verifier, issuer := setupAuth(cfg)

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.Firebase.CredentialsPath != "" {
		notifier = notify.NewFCM(cfg.Firebase.CredentialsPath)
	}

	// typed nils would defeat the handlers' nil checks
	var postCache handlers.PostCache
	if a.Cache != nil {
		postCache = a.Cache
	}
	var postIndex handlers.PostIndex
	if a.Search != nil {
		postIndex = a.Search
	}
	var tokenIssuer handlers.TokenIssuer
	if issuer != nil {
		tokenIssuer = issuer
	}

	health := map[string]handlers.Pinger{"database": handlers.PingFunc(a.DB.PingContext)}
	if a.Cache != nil {
		health["redis"] = a.Cache
	}
	if a.Search != nil {
		health["elasticsearch"] = a.Search
	}

	posts := handlers.NewPostHandler(repository.NewPostRepository(a.DB), postCache, postIndex, notifier,
		cfg.Cache.PostTTL, cfg.Cache.ViewWindow)
	posts.SetTrustProxy(cfg.Server.TrustProxy)
	router := routes.NewRouter(routes.Handlers{
		Posts:    posts,
		Comments: handlers.NewCommentHandler(repository.NewCommentRepository(a.DB), posts),
		Users:    handlers.NewUserHandler(repository.NewUserRepository(a.DB), tokenIssuer),
		Health:   health,
	}, verifier)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Printf("Server starting on %s", cfg.Addr())
	log.Fatal(srv.ListenAndServe())
}

// setupAuth verifies tokens against the hosted identity provider when a JWKS
// URL is configured, otherwise against locally issued tokens.
func setupAuth(cfg *config.Config) (auth.Verifier, *auth.Issuer) {
	if cfg.Auth.JWKSURL != "" {
		jwks, err := auth.FetchJWKS(cfg.Auth.JWKSURL, time.Hour, func(err error) {
			log.Printf("Failed to refresh JWKS: %v", err)
		})
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Verifying tokens against %s", cfg.Auth.JWKSURL)
		return auth.NewJWKSVerifier(jwks), nil
	}

	issuer := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	log.Println("Using local token issuer")
	return issuer, issuer
}
