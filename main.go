package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"banking-ledger-backend/account"
	"banking-ledger-backend/auth"
	"banking-ledger-backend/config"
	"banking-ledger-backend/ledger"
	"banking-ledger-backend/transactions"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("could not load configuration", zap.Error(err))
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL())
	if err != nil {
		logger.Fatal("could not open database", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := db.PingContext(ctx); err != nil {
		logger.Fatal("could not reach database", zap.Error(err))
	}
	logger.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	store := ledger.NewDB(db)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Fatal("could not prepare ledger schema", zap.Error(err))
	}

	userDB := &auth.DB{DB: db}
	if err := userDB.EnsureSchema(ctx); err != nil {
		logger.Fatal("could not prepare users schema", zap.Error(err))
	}

	processor := ledger.NewProcessor(store, userDB, logger)
	query := ledger.NewQuery(store)
	gate := ledger.NewGate(store, userDB, processor)

	authEnv := &auth.Env{
		DB:              db,
		JWTKey:          []byte(cfg.JWTSecret),
		Logger:          logger,
		Processor:       processor,
		InitialUSDCents: cfg.InitialUSDCents,
		InitialEURCents: cfg.InitialEURCents,
	}
	accountEnv := &account.Env{Store: store, Logger: logger}
	transactionsEnv := &transactions.Env{
		Processor:    processor,
		Query:        query,
		Gate:         gate,
		Logger:       logger,
		DefaultPage:  cfg.DefaultPage,
		DefaultLimit: cfg.DefaultLimit,
		MaxLimit:     cfg.MaxLimit,
	}

	rateLimiter := auth.NewRateLimiter(10, time.Minute)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(auth.Logger(logger))

	r.With(auth.ValidateSignupRequest).Post("/signup", authEnv.SignupHandler)
	r.With(rateLimiter.Middleware).Post("/login", authEnv.LoginHandler)

	r.Group(func(r chi.Router) {
		r.Use(auth.AuthenticationMiddleware(authEnv.JWTKey))

		r.Get("/me", authEnv.GetUserHandler)

		r.Get("/accounts", accountEnv.GetAccountsHandler)
		r.Get("/accounts/{id}/balance", accountEnv.GetBalanceHandler)
		r.Get("/accounts/reconcile", accountEnv.ReconcileHandler)

		r.Post("/transactions/transfer", transactionsEnv.TransferHandler)
		r.Post("/transactions/exchange", transactionsEnv.ExchangeHandler)
		r.Post("/transactions/propose", transactionsEnv.ProposeHandler)
		r.Post("/transactions/confirm", transactionsEnv.ConfirmHandler)
		r.Get("/transactions", transactionsEnv.ListHandler)
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped unexpectedly", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
