package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/auth-service/internal/config"
	"github.com/iliyamo/auth-service/internal/database"
	"github.com/iliyamo/auth-service/internal/handler"
	"github.com/iliyamo/auth-service/internal/middleware"
	"github.com/iliyamo/auth-service/internal/queue"
	"github.com/iliyamo/auth-service/internal/repository"
	"github.com/iliyamo/auth-service/internal/router"
	"github.com/iliyamo/auth-service/internal/utils"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	privateKey, err := utils.LoadRSAPrivateKey(cfg.PrivateKeyFile)
	if err != nil {
		log.Fatalf("signing key: %v", err)
	}
	issuer, err := utils.NewIssuer(privateKey, []byte(cfg.RefreshSecret), cfg.JWTIssuer,
		time.Duration(cfg.AccessTTLMin)*time.Minute,
		time.Duration(cfg.RefreshTTLDays)*24*time.Hour)
	if err != nil {
		log.Fatalf("token issuer: %v", err)
	}

	users := repository.NewUserRepo(db)
	tenants := repository.NewTenantRepo(db)
	ledger := repository.NewTokenRepo(db, time.Duration(cfg.RefreshTTLDays)*24*time.Hour)

	if cfg.SuperAdminEmail != "" && cfg.SuperAdminPassword != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := users.EnsureAdmin(ctx, cfg.SuperAdminEmail, cfg.SuperAdminPassword, cfg.BcryptCost); err != nil {
			log.Fatalf("admin bootstrap: %v", err)
		}
		cancel()
	}

	// Redis backs rate limiting and the tenant list cache; nil disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Print("redis unavailable; rate limiting and caching disabled")
	}

	gates := router.Gates{
		Issuer: issuer,
		Ledger: ledger,
		Limit:  middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		Cache:  middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	}

	e := echo.New()
	if cfg.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{cfg.CORSOrigin},
			AllowCredentials: true,
		}))
	}

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, issuer, users, ledger), gates)
	router.RegisterTenants(e, handler.NewTenantHandler(tenants), gates)
	router.RegisterUsers(e, handler.NewUserHandler(cfg, users), gates)

	// Background consumer records registration events to the audit log.
	go queue.StartUserEventConsumer()

	// Expired ledger rows are unusable (the token's exp claim blocks them)
	// but would otherwise accumulate; sweep them hourly.
	go ledger.SweepExpired(context.Background(), time.Hour)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
