package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"www.github.com/Wanderer0074348/CalSync/src/auth"
	"www.github.com/Wanderer0074348/CalSync/src/cache"
	"www.github.com/Wanderer0074348/CalSync/src/calendar"
	"www.github.com/Wanderer0074348/CalSync/src/config"
	"www.github.com/Wanderer0074348/CalSync/src/handlers"
	"www.github.com/Wanderer0074348/CalSync/src/logger"
	"www.github.com/Wanderer0074348/CalSync/src/middleware"
	"www.github.com/Wanderer0074348/CalSync/src/store"
)

const stateTTL = 10 * time.Minute

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zlog, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zlog.Sync()

	zlog.Info("config loaded")

	mongoClient, err := store.Connect(context.Background(), &cfg.Mongo)
	if err != nil {
		zlog.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
	}()

	userStore := store.NewUserStore(mongoClient.Database(cfg.Mongo.Database))
	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := userStore.EnsureIndexes(ctx); err != nil {
			cancel()
			zlog.Fatal("failed to create indexes", zap.Error(err))
		}
		cancel()
	}
	zlog.Info("MongoDB connected", zap.String("database", cfg.Mongo.Database))

	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		zlog.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	zlog.Info("Redis connected", zap.String("address", cfg.Redis.Address))

	stateStore := auth.NewStateStore(redisClient, stateTTL)
	sessions := auth.NewSessionManager(cfg.Session.Secret, cfg.Session.Duration)
	coordinator := auth.NewCoordinator(auth.GoogleOAuthConfig(&cfg.Google), stateStore)

	authHandler := handlers.NewAuthHandler(coordinator, userStore, sessions, cfg, zlog)
	calendarHandler := handlers.NewCalendarHandler(calendar.NewClient(), userStore, zlog)
	authMiddleware := middleware.NewAuthMiddleware(sessions)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/sign-up", authHandler.SignUp)
	r.GET("/login", authHandler.Login)
	r.GET("/auth", authHandler.Callback)
	r.GET("/logout", authHandler.Logout)
	r.GET("/me", authMiddleware.RequireAuth(), authHandler.Me)

	r.GET("/calendars", authMiddleware.RequireAuth(), calendarHandler.List)
	r.PUT("/calendars/:id", authMiddleware.RequireAuth(), calendarHandler.Toggle)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	zlog.Info("server running", zap.String("port", cfg.Server.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zlog.Fatal("server forced to shutdown", zap.Error(err))
	}

	zlog.Info("server exited")
}

func corsMiddleware() gin.HandlerFunc {
	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	var allowedOrigins []string

	if allowedOriginsEnv != "" {
		allowedOrigins = strings.Split(allowedOriginsEnv, ",")
		for i := range allowedOrigins {
			allowedOrigins[i] = strings.TrimSpace(allowedOrigins[i])
		}
	} else {
		// Default for local development
		allowedOrigins = []string{
			"http://localhost:3000",
			"http://localhost:3001",
		}
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// Requests without an Origin header (curl, health checks) pass through
		if origin == "" {
			c.Next()
			return
		}

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin {
				allowed = true
				c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
				break
			}
		}

		if !allowed {
			c.AbortWithStatus(403)
			return
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "PUT, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
