// Package server contains the HTTP and WebSocket handlers for the API.
package server

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/gustavohdab/rettiwt-backend/internal/cache"
	"github.com/gustavohdab/rettiwt-backend/internal/config"
	"github.com/gustavohdab/rettiwt-backend/internal/database"
	"github.com/gustavohdab/rettiwt-backend/internal/fanout"
	"github.com/gustavohdab/rettiwt-backend/internal/featureflags"
	"github.com/gustavohdab/rettiwt-backend/internal/middleware"
	"github.com/gustavohdab/rettiwt-backend/internal/models"
	"github.com/gustavohdab/rettiwt-backend/internal/notifications"
	"github.com/gustavohdab/rettiwt-backend/internal/repository"
	"github.com/gustavohdab/rettiwt-backend/internal/service"
)

const (
	tokenIssuer   = "rettiwt-api"
	tokenAudience = "rettiwt-client"
	tokenTTL      = 7 * 24 * time.Hour
	wsTicketTTL   = 30 * time.Second
)

// Server holds every dependency and provides the handlers.
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	userRepo  repository.UserRepository
	tweetRepo repository.TweetRepository
	trendRepo repository.TrendRepository
	notifRepo repository.NotificationRepository

	notifier   *notifications.Notifier
	hub        *notifications.Hub
	gateway    *notifications.Gateway
	dispatcher *fanout.Dispatcher

	featureFlags *featureflags.Manager

	userService     *service.UserService
	tweetService    *service.TweetService
	timelineService *service.TimelineService
	notifService    *service.NotificationService
	trendService    *service.TrendService
	searchService   *service.SearchService
	mediaService    *service.MediaService
}

// NewServer creates a server, establishing its own database and Redis
// connections from the config.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	cache.InitRedis(cfg.RedisURL)
	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server from already-initialized dependencies.
// Tests and the bootstrap layer use this to control DB/Redis setup and
// seeding explicitly. A nil redisClient degrades gracefully: realtime events
// stay in-process, rate limits fail open, and caching is skipped.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("rettiwt-api"),
		userRepo:       repository.NewUserRepository(db),
		tweetRepo:      repository.NewTweetRepository(db),
		trendRepo:      repository.NewTrendRepository(db),
		notifRepo:      repository.NewNotificationRepository(db),
		featureFlags:   featureflags.NewManager(cfg.FeatureFlags),
	}

	s.hub = notifications.NewHub()
	s.notifier = notifications.NewNotifier(redisClient)
	s.gateway = notifications.NewGateway(s.notifier, s.hub)
	s.dispatcher = fanout.NewDispatcher(s.notifRepo, s.gateway)

	s.userService = service.NewUserService(s.userRepo, s.dispatcher)
	s.tweetService = service.NewTweetService(s.tweetRepo, s.userRepo, s.dispatcher, s.isAdminByUserID)
	s.timelineService = service.NewTimelineService(s.tweetRepo, s.userRepo, s.featureFlags)
	s.notifService = service.NewNotificationService(s.notifRepo)
	s.trendService = service.NewTrendService(s.trendRepo, s.gateway, s.featureFlags)
	s.searchService = service.NewSearchService(s.tweetRepo, s.userRepo, s.trendRepo)
	s.mediaService = service.NewMediaService(cfg)

	// New content refreshes trends and pushes the update, off the write path.
	s.dispatcher.OnContent(s.trendService.RecomputeAndBroadcast)

	return s, nil
}

// SetupMiddleware configures the middleware stack for the Fiber app.
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())

	// Propagates request id and user id into the request context for logging.
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit (limiter) so browser
	// clients still receive CORS headers on error responses.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Global rate limit per IP. Route-level Redis limits sit on top for the
	// expensive endpoints.
	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				models.NewValidationError("too many requests, please try again later"))
		},
	}))
}

// SetupRoutes configures all routes for the application.
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Rettiwt Backend Metrics",
	}))

	app.Get("/media/:filename", s.ServeMedia)

	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(
		s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(
		s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Post("/refresh", s.AuthRequired(), s.Refresh)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Get("/me", s.AuthRequired(), s.Me)

	protected := api.Group("", s.AuthRequired())

	users := protected.Group("/users")
	users.Get("/profile", s.GetMyProfile)
	users.Patch("/profile", s.UpdateMyProfile)
	users.Get("/suggestions", s.GetSuggestions)
	users.Get("/bookmarks", s.GetBookmarks)
	// Fixed segments above; the username wildcard routes last.
	users.Get("/:username/followers", s.GetFollowers)
	users.Get("/:username/following", s.GetFollowing)
	users.Post("/:username/follow", s.FollowUser)
	users.Delete("/:username/follow", s.UnfollowUser)
	users.Get("/:username", s.GetUserProfile)

	tweets := protected.Group("/tweets")
	tweets.Post("/", middleware.RateLimit(
		s.redis, 30, 15*time.Minute, "create_tweet"), s.CreateTweet)
	tweets.Get("/timeline", s.GetTimeline)
	tweets.Get("/user/:username/replies", s.GetUserReplies)
	tweets.Get("/user/:username/likes", s.GetUserLikes)
	tweets.Get("/user/:username", s.GetUserTweets)
	tweets.Get("/:id/thread", s.GetThread)
	tweets.Post("/:id/like", s.LikeTweet)
	tweets.Delete("/:id/like", s.UnlikeTweet)
	tweets.Post("/:id/retweet", s.RetweetTweet)
	tweets.Delete("/:id/retweet", s.UnretweetTweet)
	tweets.Post("/:id/bookmark", s.BookmarkTweet)
	tweets.Delete("/:id/bookmark", s.UnbookmarkTweet)
	tweets.Get("/:id", s.GetTweet)
	tweets.Delete("/:id", s.DeleteTweet)

	protected.Get("/search", middleware.RateLimit(
		s.redis, 30, time.Minute, "search"), s.Search)

	trends := protected.Group("/trends")
	trends.Get("/hashtags", s.GetTrendingHashtags)
	trends.Get("/popular", s.GetPopularTweets)
	trends.Get("/who-to-follow", s.GetWhoToFollow)
	trends.Get("/hashtag/:hashtag", s.GetTweetsByHashtag)

	uploads := protected.Group("/upload")
	uploads.Post("/avatar", s.UploadAvatar)
	uploads.Post("/header", s.UploadHeader)
	uploads.Post("/tweet", s.UploadTweetImage)

	notifs := protected.Group("/notifications")
	notifs.Get("/", s.GetNotifications)
	notifs.Get("/unread-count", s.GetUnreadCount)
	notifs.Patch("/:id/read", s.MarkNotificationRead)
	notifs.Post("/read-all", s.MarkAllNotificationsRead)

	api.Post("/ws/ticket", s.AuthRequired(), s.IssueWSTicket)
	api.Get("/ws", s.AuthRequired(), s.WebsocketHandler())

	admin := protected.Group("/admin", s.AdminRequired())
	admin.Get("/feature-flags", s.GetFeatureFlags)
	admin.Post("/users/:id/deactivate", s.DeactivateUser)
	admin.Post("/users/:id/activate", s.ActivateUser)
}

// LivenessCheck handles liveness probe requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck probes the database and Redis.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		// Redis is optional; realtime degrades to in-process delivery.
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// AdminRequired rejects non-admin users with 403. Must be placed after
// AuthRequired so userID is available in locals.
func (s *Server) AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("userID").(uint)

		admin, err := s.isAdminByUserID(c.Context(), userID)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}
		if !admin {
			return models.RespondWithAppError(c,
				models.NewAuthorizationError("admin access required"))
		}
		return c.Next()
	}
}

// AuthRequired authenticates the request. WebSocket upgrades present a
// single-use ticket; everything else carries a Bearer JWT.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		isWSPath := strings.HasPrefix(c.Path(), "/api/ws") && c.Path() != "/api/ws/ticket"

		// 1. Single-use short-lived WebSocket ticket.
		if ticket := c.Query("ticket"); ticket != "" && s.redis != nil {
			key := "ws_ticket:" + ticket
			userIDStr, err := s.redis.Get(c.Context(), key).Result()
			if err == nil {
				if userID, parseErr := strconv.ParseUint(userIDStr, 10, 32); parseErr == nil {
					s.redis.Del(c.Context(), key)
					s.setAuthenticatedUser(c, uint(userID))
					return c.Next()
				}
			}
			if isWSPath {
				return models.RespondWithAppError(c,
					models.NewAuthenticationError("invalid or expired websocket ticket"))
			}
		}

		// 2. Bearer JWT.
		tokenString := bearerToken(c)
		if tokenString == "" {
			return models.RespondWithAppError(c,
				models.NewAuthenticationError("authorization required"))
		}

		userID, jti, err := s.verifyToken(c.Context(), tokenString)
		if err != nil {
			return models.RespondWithAppError(c, err)
		}

		// Deactivated accounts lose access immediately, not at token expiry.
		user, err := s.userRepo.GetByID(c.Context(), userID)
		if err != nil || !user.IsActive {
			return models.RespondWithAppError(c,
				models.NewAuthenticationError("invalid or expired token"))
		}

		c.Locals("jti", jti)
		s.setAuthenticatedUser(c, userID)
		return c.Next()
	}
}

func (s *Server) setAuthenticatedUser(c *fiber.Ctx, userID uint) {
	c.Locals("userID", userID)
	ctx := context.WithValue(c.UserContext(), middleware.UserIDKey, userID)
	c.SetUserContext(ctx)
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}

// verifyToken validates signature, issuer, audience, expiry, and the jti
// blacklist, returning the subject user id and jti.
func (s *Server) verifyToken(ctx context.Context, tokenString string) (uint, string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
	)
	if err != nil || !token.Valid {
		return 0, "", models.NewAuthenticationError("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, "", models.NewAuthenticationError("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, "", models.NewAuthenticationError("invalid subject claim")
	}
	userID, err := strconv.ParseUint(sub, 10, 32)
	if err != nil {
		return 0, "", models.NewAuthenticationError("invalid user id in token")
	}

	jti, _ := claims["jti"].(string)
	if jti != "" && s.redis != nil {
		revoked, err := s.redis.Exists(ctx, "blacklist:"+jti).Result()
		if err == nil && revoked > 0 {
			return 0, "", models.NewAuthenticationError("token has been revoked")
		}
	}

	return uint(userID), jti, nil
}

// isAdminByUserID reports whether the user holds the admin role.
func (s *Server) isAdminByUserID(ctx context.Context, userID uint) (bool, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return user.IsAdmin(), nil
}

// Start builds the Fiber app, wires the hub to Redis pub/sub, and listens.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	app := fiber.New(fiber.Config{
		AppName:   "Rettiwt API",
		BodyLimit: (s.config.MediaMaxUploadSizeMB + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("unhandled error: %v", err)
			return models.RespondWithAppError(c, models.NewInternalError(err))
		},
	})
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	if s.notifier != nil && s.notifier.Connected() {
		if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
			log.Printf("failed to start %s wiring: %v", s.hub.Name(), err)
		}
	}

	log.Printf("server starting on port %s", s.config.Port)
	return app.Listen(":" + s.config.Port)
}

// Shutdown stops the listener, drains in-flight fan-out deliveries, closes
// websocket connections, and releases the DB and Redis handles.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	if err := s.dispatcher.Drain(ctx); err != nil {
		log.Printf("fanout drain incomplete: %v", err)
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		log.Printf("error shutting down %s hub: %v", s.hub.Name(), err)
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("server shutdown complete")
	return nil
}
