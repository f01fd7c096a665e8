package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/yatraavaghasia/Natours/internal/config"
	"github.com/yatraavaghasia/Natours/internal/db"
	"github.com/yatraavaghasia/Natours/internal/email"
	apihttp "github.com/yatraavaghasia/Natours/internal/http"
	"github.com/yatraavaghasia/Natours/internal/repository"
	"github.com/yatraavaghasia/Natours/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()
	if err := db.Ping(ctx, pool); err != nil {
		logger.Fatal("db ping", zap.Error(err))
	}

	userRepo := repository.NewPgUserRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	hasher := service.NewHasher(cfg.BcryptCost)
	tokenSvc := service.NewTokenService(cfg.JWTSecret, cfg.JWTExpiresIn)
	authSvc := service.NewAuthService(logger, userRepo, emailSender, hasher, cfg.BaseURL)

	authMW := apihttp.NewAuthMiddleware(logger, tokenSvc, userRepo)
	authHandler := apihttp.NewAuthHandler(logger, authSvc, tokenSvc, cfg.JWTCookieExpiresDays, cfg.IsProduction())
	userHandler := apihttp.NewUserHandler(logger, authSvc, userRepo)
	router := apihttp.NewRouter(logger, cfg.IsProduction(), authMW, authHandler, userHandler)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Ante una señal de apagado se deja de aceptar conexiones antes de salir;
	// nunca se sigue sirviendo en un estado sabido malo.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
