package main

import (
	"crypto/tls"
	"encoding/json"
	stdlog "log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/coinledger/backend/src/config"
	"github.com/username/coinledger/backend/src/database"
	"github.com/username/coinledger/backend/src/handlers"
	"github.com/username/coinledger/backend/src/logger"
	"github.com/username/coinledger/backend/src/security"
	"github.com/username/coinledger/backend/src/services"
	"github.com/username/coinledger/backend/src/storage"
)

const (
	upstreamTimeout = 10 * time.Second
	binanceBaseURL  = "https://api.binance.com"
)

func proxyHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-Proto") == "https" {
			r.URL.Scheme = "https"
			r.TLS = &tls.ConnectionState{}
		}
		next.ServeHTTP(w, r)
	})
}

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded", "path", r.URL.Path)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000":    true,
			config.Cfg.FrontendBaseURL: true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, X-Requested-With, Cookie, If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "X-CSRF-Token, ETag")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)

	logger.L.Info("CoinLedger backend server starting...")

	if config.Cfg.JWTSecret == "" || len(config.Cfg.JWTSecret) < 32 {
		logger.L.Error("JWT_SECRET configuration invalid.")
		os.Exit(1)
	}

	logger.L.Info("Initializing database...", "path", config.Cfg.DatabasePath)
	database.InitDB(config.Cfg.DatabasePath)
	database.RunMigrations(config.Cfg.DatabasePath)

	statsCache := cache.New(services.DefaultCacheExpiration, services.CacheCleanupInterval)

	handlers.InitializeGoogleOAuthConfig()

	authService := security.NewAuthService(config.Cfg.JWTSecret)
	eventHub := services.NewEventHub()

	kvStore := storage.NewSQLiteKVStore(database.DB)
	rateFetcher := services.NewHTTPRateFetcher(config.Cfg.RateAPIURL, upstreamTimeout)
	rateService := services.NewRateService(
		kvStore,
		rateFetcher,
		config.Cfg.LocalCurrency,
		config.Cfg.RateFallback,
		config.Cfg.RateCacheTTL,
		config.Cfg.RateRefreshInterval,
	)
	rateService.StartAutoRefresh()
	defer rateService.Stop()

	marketService := services.NewMarketService(
		[]services.QuoteProvider{
			services.NewCoinGeckoProvider(config.Cfg.MarketAPIBaseURL, upstreamTimeout),
			services.NewBinanceProvider(binanceBaseURL, upstreamTimeout),
		},
		services.NewCoinGeckoGlobalFetcher(config.Cfg.MarketAPIBaseURL, upstreamTimeout),
		services.NewFearGreedFetcher(config.Cfg.MarketSentimentURL, upstreamTimeout),
		services.NewCryptoCompareNewsFetcher(config.Cfg.MarketNewsURL, upstreamTimeout),
		config.Cfg.MarketCacheTTL,
		config.Cfg.MarketRefreshInterval,
	)
	marketService.StartAutoRefresh(handlers.DefaultMarketSymbols)
	defer marketService.Stop()

	attachmentService, err := services.NewAttachmentService(config.Cfg.UploadDir, config.Cfg.MaxUploadSizeBytes)
	if err != nil {
		logger.L.Error("Failed to initialize attachment storage", "error", err)
		os.Exit(1)
	}

	userHandler := handlers.NewUserHandler(authService, attachmentService, eventHub, statsCache)
	entryHandler := handlers.NewEntryHandler(eventHub, statsCache)
	statsHandler := handlers.NewStatsHandler(rateService, statsCache)
	rateHandler := handlers.NewRateHandler(rateService)
	marketHandler := handlers.NewMarketHandler(marketService)
	goalHandler := handlers.NewGoalHandler(eventHub)
	messageHandler := handlers.NewMessageHandler(eventHub)
	uploadHandler := handlers.NewUploadHandler(attachmentService)
	eventsHandler := handlers.NewEventsHandler(eventHub)

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(handlers.ContextualLoggerMiddleware)
	r.Use(proxyHeadersMiddleware)
	r.Use(enableCORS)
	r.Use(rateLimitMiddleware)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "CoinLedger Backend is running"})
	})

	// Stored attachments are public by reference; the refs are UUIDs.
	fileServer := http.FileServer(http.Dir(config.Cfg.UploadDir))
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", fileServer))

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Group(func(r chi.Router) {
			r.Get("/auth/csrf", handlers.GetCSRFToken)
			r.Get("/auth/google/login", userHandler.HandleGoogleLogin)
			r.Get("/auth/google/callback", userHandler.HandleGoogleCallback)
		})

		// Auth routes (CSRF protected)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Post("/auth/login", userHandler.LoginUserHandler)
			r.Post("/auth/register", userHandler.RegisterUserHandler)
			r.Post("/auth/refresh", userHandler.RefreshTokenHandler)
			r.With(userHandler.AuthMiddleware).Post("/auth/logout", userHandler.LogoutUserHandler)
		})

		// Protected routes (auth + CSRF)
		r.Group(func(r chi.Router) {
			r.Use(handlers.CSRFMiddleware(config.Cfg.CSRFAuthKey))
			r.Use(userHandler.AuthMiddleware)

			r.Get("/entries", entryHandler.HandleListEntries)
			r.Post("/entries", entryHandler.HandleCreateEntry)
			r.Get("/entries/{id}", entryHandler.HandleGetEntry)
			r.Put("/entries/{id}", entryHandler.HandleUpdateEntry)
			r.Patch("/entries/{id}/pin", entryHandler.HandlePinEntry)
			r.Delete("/entries/{id}", entryHandler.HandleDeleteEntry)

			r.Get("/stats", statsHandler.HandleGetStats)

			r.Get("/rate", rateHandler.HandleGetRate)
			r.Put("/rate/override", rateHandler.HandleSetOverride)
			r.Delete("/rate/override", rateHandler.HandleClearOverride)

			r.Get("/market/overview", marketHandler.HandleGetOverview)
			r.Get("/market/snapshot", marketHandler.HandleGetSnapshot)
			r.Get("/market/news", marketHandler.HandleGetNews)
			r.Get("/market/sentiment", marketHandler.HandleGetSentiment)

			r.Get("/goals", goalHandler.HandleListGoals)
			r.Post("/goals", goalHandler.HandleCreateGoal)
			r.Put("/goals/{id}", goalHandler.HandleUpdateGoal)
			r.Delete("/goals/{id}", goalHandler.HandleDeleteGoal)

			r.Get("/messages", messageHandler.HandleListMessages)
			r.Post("/messages", messageHandler.HandlePostMessage)
			r.Delete("/messages/{id}", messageHandler.HandleDeleteMessage)

			r.Post("/upload", uploadHandler.HandleUpload)
			r.Delete("/upload/{ref}", uploadHandler.HandleDeleteAttachment)

			r.Get("/events", eventsHandler.HandleStream)

			r.Get("/user/has-data", userHandler.HandleCheckUserData)
			r.Post("/user/delete-account", userHandler.DeleteAccountHandler)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") {
			http.NotFound(w, r)
		}
	})

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		stdlog.Fatalf("Failed to start server: %v", err)
	}
}
