package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/ShailySarker/digital-wallet-backend/internal/account"
	"github.com/ShailySarker/digital-wallet-backend/internal/auth"
	"github.com/ShailySarker/digital-wallet-backend/internal/config"
	"github.com/ShailySarker/digital-wallet-backend/internal/database"
	"github.com/ShailySarker/digital-wallet-backend/internal/events"
	"github.com/ShailySarker/digital-wallet-backend/internal/handlers"
	"github.com/ShailySarker/digital-wallet-backend/internal/ledger"
	"github.com/ShailySarker/digital-wallet-backend/internal/middleware"
	"github.com/ShailySarker/digital-wallet-backend/internal/models"
	"github.com/ShailySarker/digital-wallet-backend/internal/reporting"
	"github.com/ShailySarker/digital-wallet-backend/internal/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to PostgreSQL and apply migrations
	db, err := database.Connect(cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Connect to NATS
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer nc.Close()
	log.Println("Connected to NATS")

	// Set up dependencies
	store := repository.NewPostgresStore(db)
	accountRepo := repository.NewPostgresAccountRepository(db)
	walletRepo := repository.NewPostgresWalletRepository(db)
	txnRepo := repository.NewPostgresTransactionRepository(db)
	reportRepo := repository.NewPostgresReportingRepository(db)
	contactRepo := repository.NewPostgresContactRepository(db)
	sessionRepo := repository.NewPostgresSessionRepository(db, redisClient)

	publisher := events.NewNatsPublisher(nc)
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTExpiry, cfg.RefreshExpiry)

	accountSvc := account.NewService(store, accountRepo, cfg.Wallet, cfg.BcryptCost)
	authSvc := auth.NewService(accountRepo, store, sessionRepo, tokens, publisher,
		cfg.BcryptCost, cfg.FrontendURL, cfg.JWTExpiry, cfg.RefreshExpiry)
	engine := ledger.NewEngine(store, cfg.Wallet, publisher)
	reportingSvc := reporting.NewService(txnRepo, walletRepo, reportRepo)

	if err := accountSvc.SeedAdmin(context.Background(), cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}

	authHandler := handlers.NewAuthHandler(authSvc)
	accountHandler := handlers.NewAccountHandler(accountSvc)
	walletHandler := handlers.NewWalletHandler(engine, walletRepo)
	txnHandler := handlers.NewTransactionHandler(reportingSvc)
	contactHandler := handlers.NewContactHandler(contactRepo)

	authMiddleware := middleware.Auth(authSvc, accountSvc)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	contactLimiter := middleware.NewRateLimiter(5, time.Minute)

	// Routes
	mux := http.NewServeMux()

	// Health check (no auth required)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, `{"status":"healthy"}`)
	})

	// Public routes
	mux.Handle("POST /auth/login", loginLimiter.Middleware(http.HandlerFunc(authHandler.Login)))
	mux.HandleFunc("POST /auth/refresh", authHandler.Refresh)
	mux.HandleFunc("POST /auth/forgot-password", authHandler.ForgotPassword)
	mux.HandleFunc("POST /auth/reset-password", authHandler.ResetPassword)
	mux.HandleFunc("POST /accounts/register", accountHandler.Register)
	mux.Handle("POST /contact", contactLimiter.Middleware(http.HandlerFunc(contactHandler.Create)))

	// Protected routes
	protected := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(handler))
	}
	admin := func(pattern string, handler http.HandlerFunc) {
		mux.Handle(pattern, authMiddleware(adminOnly(handler)))
	}

	protected("POST /auth/logout", authHandler.Logout)
	protected("POST /auth/change-password", authHandler.ChangePassword)

	protected("GET /accounts/me", accountHandler.Me)
	protected("GET /accounts/lookup", accountHandler.Lookup)
	protected("PATCH /accounts/{id}", accountHandler.Update)
	admin("GET /accounts/{id}", accountHandler.Get)
	admin("GET /accounts", accountHandler.List)

	protected("GET /wallets/me", walletHandler.Me)
	protected("POST /wallets/deposit", walletHandler.Deposit)
	protected("POST /wallets/withdraw", walletHandler.Withdraw)
	protected("POST /wallets/send", walletHandler.Send)
	protected("POST /wallets/cash-in", walletHandler.CashIn)
	protected("POST /wallets/cash-out", walletHandler.CashOut)
	admin("PATCH /wallets/{id}/status", walletHandler.SetStatus)
	admin("GET /wallets", walletHandler.List)

	protected("GET /transactions/me", txnHandler.History)
	protected("GET /transactions/commission/summary", txnHandler.AgentSummary)
	protected("GET /transactions/commission/history", txnHandler.CommissionHistory)
	admin("GET /transactions/overview", txnHandler.Overview)
	protected("GET /transactions/{id}", txnHandler.Get)
	admin("GET /transactions", txnHandler.List)

	admin("GET /contact", contactHandler.List)

	// Server
	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.ServerPort),
		Handler:      middleware.Logging(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Wallet backend listening on :%d", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced shutdown: %v", err)
	}

	nc.Drain()
	log.Println("Server stopped gracefully")
}
