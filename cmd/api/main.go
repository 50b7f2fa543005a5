package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gormlogger "gorm.io/gorm/logger"

	httpadp "loan-service/internal/adapter/http"
	"loan-service/internal/adapter/identity"
	"loan-service/internal/adapter/repository/gormrepo"
	"loan-service/internal/adapter/token"
	"loan-service/internal/config"
	"loan-service/internal/infrastructure/cache"
	"loan-service/internal/infrastructure/db"
	"loan-service/internal/usecase/auth"
	"loan-service/internal/usecase/loan"
	"loan-service/internal/validation"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	level := gormlogger.Warn
	if cfg.IsDevelopment() {
		level = gormlogger.Info
	}
	gdb, err := db.Open(cfg.DBDriver, cfg.DSN(), level)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer sqlDB.Close()

	if cfg.DBMigrate {
		if err := db.Migrate(cfg.DBDriver, cfg.MigrateURL()); err != nil {
			log.Fatalf("migrate: %v", err)
		}
	}

	rdb, err := cache.Open(context.Background(), cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	v := validation.New()
	tokens := token.NewIssuer(cfg.JWTKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.TokenTTL())
	ids := identity.NewService(gormrepo.NewUserRepository(gdb), 0)

	loanUC := loan.NewUsecase(gormrepo.NewLoanRepository(gdb), v)
	authUC := auth.NewUsecase(ids, tokens, v)

	e := echo.New()
	e.HideBanner = true
	e.Validator = v
	e.HTTPErrorHandler = httpadp.NewErrorHandler(cfg.IsDevelopment())
	e.Use(middleware.RequestID(), middleware.Logger(), middleware.Recover())
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
	}))

	httpadp.Register(e, httpadp.Routes{
		Health: httpadp.NewHandler(
			httpadp.Check{Name: "db", Ping: sqlDB.PingContext},
			httpadp.Check{Name: "redis", Ping: cache.Pinger(rdb)},
		),
		Loans:    httpadp.NewLoanHandler(loanUC),
		Auth:     httpadp.NewAuthHandler(authUC),
		Tokens:   tokens,
		Redis:    rdb,
		IdempTTL: cfg.IdempotencyTTL(),
	})

	go func() {
		addr := ":" + cfg.AppPort
		log.Printf("listening on %s (%s)", addr, cfg.AppEnv)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	log.Println("server stopped")
}
