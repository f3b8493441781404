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

	"github.com/certprep/backend/internal/auth"
	"github.com/certprep/backend/internal/catalog"
	"github.com/certprep/backend/internal/config"
	"github.com/certprep/backend/internal/daily"
	"github.com/certprep/backend/internal/database"
	"github.com/certprep/backend/internal/generator"
	"github.com/certprep/backend/internal/middleware"
	"github.com/certprep/backend/internal/quiz"
	"github.com/certprep/backend/internal/scheduler"
	"github.com/certprep/backend/internal/selection"
	"github.com/certprep/backend/internal/stats"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Selections live in Redis when configured
	var selections selection.Store
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("Invalid REDIS_URL: %v", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		selections = selection.NewRedisStore(rdb)
		log.Println("Selections stored in redis")
	} else {
		selections = selection.NewMemoryStore()
		log.Println("REDIS_URL not set, selections kept in memory")
	}

	// Initialize stores and services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret)
	userStore := auth.NewStore(db)

	catalogStore := catalog.NewStore(db)
	catalogService := catalog.NewService(catalogStore)

	quizStore := quiz.NewStore(db)
	dailyService := daily.NewService(daily.NewStore(db), quizStore, cfg.StatsLocation)

	hub := quiz.NewHub()
	quizService := quiz.NewService(quizStore, userStore, selections, dailyService, hub, cfg.StatsLocation)

	statsService := stats.NewService(stats.NewStore(db), catalogService, cfg.StatsLocation)

	gen := generator.NewGenerator(cfg.MockGenerator, cfg.AnthropicAPIKey, cfg.AnthropicModel)
	genService := generator.NewService(gen, catalogService, catalogStore)

	// Initialize handlers
	authHandler := auth.NewHandler(userStore, tokens)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Admin routes
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(middleware.AdminKey(cfg.AdminAPIKey))
	daily.NewHandler(dailyService).RegisterAdminRoutes(admin)
	generator.NewHandler(genService).RegisterAdminRoutes(admin)

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.Auth(tokens))
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")
	catalog.NewHandler(catalogService).RegisterRoutes(protected)
	selection.NewHandler(selections, catalogService).RegisterRoutes(protected)
	quiz.NewHandler(quizService, hub).RegisterRoutes(protected)
	stats.NewHandler(statsService, selections).RegisterRoutes(protected)
	daily.NewHandler(dailyService).RegisterRoutes(protected)

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.PingContext(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"degraded"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Background jobs
	jobs := scheduler.New(cfg.StatsLocation)
	if err := jobs.Add("daily-questions", cfg.DailyQuestionCron, func(ctx context.Context) error {
		_, err := dailyService.AssignAll(ctx, dailyService.Today())
		return err
	}); err != nil {
		log.Fatalf("Failed to schedule daily questions: %v", err)
	}
	if err := jobs.Add("session-sweep", cfg.SessionSweepCron, func(ctx context.Context) error {
		quizService.Sweep(cfg.QuizSessionTTL)
		return nil
	}); err != nil {
		log.Fatalf("Failed to schedule session sweep: %v", err)
	}
	jobs.Start()

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Admin-Key"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	jobs.Stop(ctx)
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
	quizService.Sweep(0)
}
