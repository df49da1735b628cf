package main

import (
	"context"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/haya-auth/haya/internal/config"
	"github.com/haya-auth/haya/internal/handler"
	"github.com/haya-auth/haya/internal/jwt"
	"github.com/haya-auth/haya/internal/repository"
	"github.com/haya-auth/haya/internal/service"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	if err := godotenv.Load(); err != nil {
		log.Debug("no .env file found, using system environment")
	}

	cfg := config.Load()

	privateKey, err := jwt.LoadPrivateKeyFromFile(cfg.JWT.PrivateKeyPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load signing key")
	}

	publicKey, err := jwt.LoadPublicKeyFromFile(cfg.JWT.PublicKeyPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load verification key")
	}

	codec, err := jwt.NewCodec(privateKey, publicKey)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize token codec")
	}

	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		log.WithError(err).Fatal("failed to migrate schema")
	}

	clients := repository.NewClientRepository(pool)

	var (
		codes         repository.AuthorizationCodeStore
		accessTokens  repository.TokenStore
		refreshTokens repository.TokenStore
	)

	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.WithError(err).Fatal("invalid REDIS_URL")
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			log.WithError(err).Fatal("failed to ping redis")
		}

		codes = repository.NewRedisAuthorizationCodeStore(client)
		accessTokens = repository.NewRedisAccessTokenStore(client)
		refreshTokens = repository.NewRedisRefreshTokenStore(client)
		log.Info("grant stores backed by redis")
	} else {
		codes = repository.NewAuthorizationCodeStore(pool)
		accessTokens = repository.NewAccessTokenStore(pool)
		refreshTokens = repository.NewRefreshTokenStore(pool)
		log.Info("grant stores backed by postgres")
	}

	authorizeService := service.NewAuthorizeService(
		clients, codes, codec, cfg.OAuth.AuthorizationCodeTTL, log,
	)
	tokenService := service.NewTokenService(
		clients, codes, accessTokens, refreshTokens, codec,
		cfg.OAuth.AccessTokenTTL, cfg.OAuth.RefreshTokenTTL, log,
	)

	mux := http.NewServeMux()
	mux.Handle("/oauth2/auth", handler.NewAuthorizeHandler(authorizeService))
	mux.Handle("/oauth2/token", handler.NewTokenHandler(tokenService))

	addr := ":" + cfg.Server.Port
	log.WithField("addr", addr).Info("authorization server listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}
