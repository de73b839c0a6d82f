package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/binhbb2204/litverse/internal/apierr"
	"github.com/binhbb2204/litverse/internal/auth"
	"github.com/binhbb2204/litverse/internal/book"
	"github.com/binhbb2204/litverse/internal/gamification"
	"github.com/binhbb2204/litverse/internal/health"
	"github.com/binhbb2204/litverse/internal/payment"
	"github.com/binhbb2204/litverse/internal/pricing"
	"github.com/binhbb2204/litverse/internal/ratelimit"
	"github.com/binhbb2204/litverse/internal/realtime"
	"github.com/binhbb2204/litverse/internal/recommendation"
	"github.com/binhbb2204/litverse/internal/social"
	"github.com/binhbb2204/litverse/internal/user"
	"github.com/binhbb2204/litverse/pkg/config"
	"github.com/binhbb2204/litverse/pkg/database"
	"github.com/binhbb2204/litverse/pkg/discovery"
	"github.com/binhbb2204/litverse/pkg/logger"
	"github.com/binhbb2204/litverse/pkg/metrics"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// Server owns the HTTP router, the real-time hub and the request limiter.
type Server struct {
	cfg     config.Config
	router  *gin.Engine
	hub     *realtime.Hub
	limiter ratelimit.Limiter
	log     *logger.Logger
}

func New(ctx context.Context, cfg config.Config, db *sql.DB) (*Server, error) {
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("jwt secret is required")
	}
	apierr.UseJSONFieldNames()

	s := &Server{
		cfg: cfg,
		hub: realtime.NewHub(),
		log: logger.WithContext("component", "api_server"),
	}
	if cfg.RateLimit.Requests > 0 {
		s.limiter = ratelimit.FromConfig(ctx, cfg.Redis, cfg.RateLimit)
	}
	s.router = s.routes(db)
	return s, nil
}

func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) Hub() *realtime.Hub { return s.hub }

func (s *Server) routes(db *sql.DB) *gin.Engine {
	cfg := s.cfg
	secret := cfg.Server.JWTSecret

	books := book.NewRepository(db)
	points := gamification.NewService(db, s.hub)
	clubs := social.NewService(social.NewRepository(db), points, s.hub)
	calc := pricing.NewCalculator(pricing.ConfigFromFloats(
		cfg.Pricing.FreeShippingThreshold, cfg.Pricing.FlatShippingRate, cfg.Pricing.TaxRate))

	authHandler := auth.NewHandler(secret)
	bookHandler := book.NewHandler(books)
	userHandler := user.NewHandler(user.NewRepository(db), books, points, s.hub)
	gameHandler := gamification.NewHandler(points)
	aiHandler := recommendation.NewHandler(recommendation.NewServiceFromConfig(cfg.AI, db, books))
	payHandler := payment.NewHandler(payment.NewService(db, books, calc))
	socialHandler := social.NewHandler(clubs)
	healthHandler := health.NewHandler(s.hub)
	wsServer := realtime.NewServer(s.hub, clubs, secret, cfg.Server.FrontendURL)

	router := gin.New()
	router.Use(RequestID(), RequestLogger(), apierr.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{cfg.Server.FrontendURL}
	corsCfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader}
	corsCfg.ExposeHeaders = []string{"Content-Length", requestIDHeader}
	corsCfg.AllowCredentials = true
	router.Use(cors.New(corsCfg))

	router.NoRoute(apierr.NoRoute)
	router.GET("/healthz", healthHandler.Healthz)
	router.GET("/readyz", healthHandler.Readyz)
	router.GET("/metrics", metrics.NewHandler().Metrics)
	router.GET("/ws", wsServer.HandleWebSocket)

	api := router.Group("/api")
	if s.limiter != nil {
		api.Use(ratelimit.Middleware(s.limiter, cfg.RateLimit.Window))
	}
	api.GET("/health", healthHandler.Status)
	protected := auth.AuthMiddleware(secret)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", protected, authHandler.Me)
		authGroup.POST("/change-password", protected, authHandler.ChangePassword)
	}

	bookGroup := api.Group("/books")
	{
		bookGroup.GET("", bookHandler.ListBooks)
		bookGroup.GET("/search/:query", bookHandler.SearchBooks)
		bookGroup.GET("/genre/:genre", bookHandler.BooksByGenre)
		bookGroup.GET("/featured", bookHandler.Featured)
		bookGroup.GET("/bestsellers", bookHandler.Bestsellers)
		bookGroup.GET("/new-releases", bookHandler.NewReleases)
		bookGroup.GET("/:id", bookHandler.GetBook)
		bookGroup.GET("/:id/stats", bookHandler.BookStats)
		bookGroup.POST("/:id/rate", protected, bookHandler.RateBook)
		bookGroup.POST("", protected, bookHandler.CreateBook)
	}

	userGroup := api.Group("/users", protected)
	{
		userGroup.GET("/profile", userHandler.GetProfile)
		userGroup.PUT("/profile", userHandler.UpdateProfile)
		userGroup.GET("/library", userHandler.GetLibrary)
		userGroup.POST("/library/:action", userHandler.AddToLibrary)
		userGroup.DELETE("/library/:action/:bookId", userHandler.RemoveFromLibrary)
		userGroup.POST("/reading-progress", userHandler.ReadingProgress)
		userGroup.GET("/analytics", userHandler.Analytics)
		userGroup.GET("/social", userHandler.Social)
		userGroup.POST("/follow/:userId", userHandler.Follow)
		userGroup.DELETE("/follow/:userId", userHandler.Unfollow)
	}

	gameGroup := api.Group("/gamification", protected)
	{
		gameGroup.GET("/achievements", gameHandler.Achievements)
		gameGroup.GET("/stats", gameHandler.Stats)
		gameGroup.GET("/streaks", gameHandler.Streaks)
		gameGroup.GET("/badges", gameHandler.Badges)
		gameGroup.GET("/leaderboard", gameHandler.Leaderboard)
		gameGroup.POST("/redeem-points", gameHandler.RedeemPoints)
	}

	aiGroup := api.Group("/ai", protected)
	{
		aiGroup.GET("/recommendations", aiHandler.Recommendations)
		aiGroup.GET("/mood-recommendations", aiHandler.MoodRecommendations)
	}

	payGroup := api.Group("/payments", protected)
	{
		payGroup.POST("/quote", payHandler.Quote)
		payGroup.POST("/checkout", payHandler.Checkout)
		payGroup.GET("/orders", payHandler.Orders)
		payGroup.GET("/orders/:orderId", payHandler.Order)
		payGroup.GET("/coupons/:code", payHandler.ValidateCoupon)
	}

	socialGroup := api.Group("/social", protected)
	{
		socialGroup.GET("/book-clubs", socialHandler.ListClubs)
		socialGroup.POST("/book-clubs", socialHandler.CreateClub)
		socialGroup.GET("/book-clubs/:clubId", socialHandler.GetClub)
		socialGroup.POST("/book-clubs/:clubId/join", socialHandler.JoinClub)
	}

	return router
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// ten seconds and closes every real-time connection.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(gctx)
		return nil
	})
	if local, ok := s.limiter.(*ratelimit.LocalLimiter); ok {
		g.Go(func() error {
			local.Run(gctx)
			return nil
		})
	}
	if s.cfg.Discovery.Enabled {
		ann := discovery.NewAnnouncement("litverse", discovery.LocalIP(), s.cfg.Server.Port)
		b := discovery.NewBroadcaster(s.cfg.Discovery.Addr, s.cfg.Discovery.Interval, ann)
		g.Go(func() error {
			b.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		s.log.Info("http_server_listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("http_server_draining", "timeout", shutdownTimeout.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Warn("shutdown_timeout_forcing_stop", "error", err)
			return srv.Close()
		}
		s.log.Info("graceful_shutdown_complete")
		return nil
	})
	return g.Wait()
}

// Serve opens the database at cfg.Database.Path and runs the API until ctx ends.
func Serve(ctx context.Context, cfg config.Config) error {
	if err := database.InitDatabase(cfg.Database.Path); err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	defer database.Close()

	s, err := New(ctx, cfg, database.DB)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}
