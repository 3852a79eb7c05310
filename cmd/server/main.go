package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/chargeseller/backend/docs"
	"github.com/chargeseller/backend/internal/config"
	"github.com/chargeseller/backend/internal/database"
	"github.com/chargeseller/backend/internal/handlers"
	mW "github.com/chargeseller/backend/internal/middleware"
	"github.com/chargeseller/backend/internal/services"
)

// @title Charge Seller Backend API
// @version 1.0
// @description Seller balance ledger and phone charge order API
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https

func main() {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()
	viper.SetEnvPrefix("")

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	viper.BindEnv("jwt.secret_key", "JWT_SECRET_KEY")
	viper.BindEnv("jwt.expiry_hours", "JWT_EXPIRY_HOURS")
	viper.BindEnv("argon2.time", "ARGON2_TIME")
	viper.BindEnv("argon2.memory", "ARGON2_MEMORY")
	viper.BindEnv("argon2.threads", "ARGON2_THREADS")
	viper.BindEnv("argon2.key_length", "ARGON2_KEY_LENGTH")
	viper.BindEnv("argon2.salt_length", "ARGON2_SALT_LENGTH")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	docs.SwaggerInfo.Title = "Charge Seller Backend API"
	docs.SwaggerInfo.Description = "Seller balance ledger and phone charge order API"
	docs.SwaggerInfo.Version = "1.0"
	docs.SwaggerInfo.Host = "localhost:8080"
	docs.SwaggerInfo.BasePath = "/api/v1"
	docs.SwaggerInfo.Schemes = []string{"http", "https"}

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient != nil {
		defer redisClient.Close()
	}

	chargeCfg := config.LoadChargeConfig()

	ledgerService := services.NewLedgerService(db, chargeCfg.LockTimeout)
	creditRequestService := services.NewCreditRequestService(db, ledgerService)
	chargeOrderService := services.NewChargeOrderService(db, redisClient, ledgerService, chargeCfg)
	transactionService := services.NewTransactionService(db)
	sellerService := services.NewSellerService(db)
	phoneNumberService := services.NewPhoneNumberService(db)
	authService := services.NewAuthService(db, redisClient)

	creditRequestHandler := handlers.NewCreditRequestHandler(creditRequestService)
	chargeOrderHandler := handlers.NewChargeOrderHandler(chargeOrderService)
	transactionHandler := handlers.NewTransactionHandler(transactionService)
	sellerHandler := handlers.NewSellerHandler(sellerService, transactionService)
	phoneNumberHandler := handlers.NewPhoneNumberHandler(phoneNumberService)

	mW.InitAuthMiddleware(redisClient)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Access-Control-Allow-Origin"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("http://localhost:8080/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", authService.Register)
		r.Post("/auth/login", authService.Login)
		r.Post("/auth/logout", authService.Logout)

		// Protected endpoints
		r.Group(func(r chi.Router) {
			r.Use(mW.AuthMiddleware)

			r.Get("/phone-numbers", phoneNumberHandler.List)

			r.Get("/credit-requests/{id}", creditRequestHandler.Get)
			r.Get("/charge-orders/{id}", chargeOrderHandler.Get)
			r.Get("/transactions", transactionHandler.List)
			r.Get("/transactions/{reference}", transactionHandler.Get)

			// Seller-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireSeller)

				r.Get("/sellers/me", sellerHandler.Me)
				r.Get("/sellers/me/reconcile", sellerHandler.Reconcile)

				r.Post("/credit-requests", creditRequestHandler.Submit)
				r.Get("/credit-requests", creditRequestHandler.List)

				r.Post("/charge-orders", chargeOrderHandler.Submit)
				r.Get("/charge-orders", chargeOrderHandler.List)
			})

			// Admin-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(mW.RequireAdmin)

				r.Put("/credit-requests/{id}/decision", creditRequestHandler.Decide)

				r.Post("/phone-numbers", phoneNumberHandler.Create)
				r.Delete("/phone-numbers/{id}", phoneNumberHandler.Deactivate)
			})
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server stopped")
}
