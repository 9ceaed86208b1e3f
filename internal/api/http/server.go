package http

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/api/http/handlers"
	"github.com/spec-kit/tr4ction-console/internal/auth"
	"github.com/spec-kit/tr4ction-console/internal/config"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/observability"
	"github.com/spec-kit/tr4ction-console/internal/repository"
)

const (
	serviceName = "tr4ction-stub"
	version     = "dev"
	// bodyLimit leaves room for multipart framing around the largest upload.
	bodyLimit = domain.MaxDocumentBytes + 1<<20
)

// Server is the development stub of the tr4ction backend: the routes the
// console calls, backed by in-memory repositories.
type Server struct {
	App      *fiber.App
	Faults   *Faults
	Tokens   *auth.TokenManager
	Users    repository.UserRepository
	Trails   repository.TrailRepository
	Progress repository.ProgressRepository
	Docs     repository.DocumentRepository
	logger   *zap.Logger
}

// Options carries the optional collaborators of NewServer.
type Options struct {
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Ready   map[string]handlers.Pinger
}

// NewServer builds the app and seeds one admin, one founder and one trail.
func NewServer(ctx context.Context, cfg config.StubConfig, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		Faults:   NewFaults(),
		Tokens:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		Users:    repository.NewUserRepository(),
		Trails:   repository.NewTrailRepository(repository.DefaultTrail(time.Now())),
		Progress: repository.NewProgressRepository(),
		Docs:     repository.NewDocumentRepository(),
		logger:   logger,
	}
	if err := s.seed(ctx, cfg); err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		BodyLimit:             bodyLimit,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, opts.Metrics, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, s.Faults)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(serviceName, version, opts.Ready),
		Auth:           handlers.NewAuthHandler(s.Users, s.Tokens, cfg.BcryptCost, logger),
		Founder:        handlers.NewFounderHandler(s.Trails, s.Progress),
		Chat:           handlers.NewChatHandler(s.Docs, cfg.ChatPerMinute),
		Admin:          handlers.NewAdminHandler(s.Users, s.Trails, s.Progress),
		Knowledge:      handlers.NewKnowledgeHandler(s.Docs, logger),
		AuthMiddleware: auth.NewAuthMiddleware(s.Tokens, s.Users),
	})
	s.App = app
	return s, nil
}

func (s *Server) seed(ctx context.Context, cfg config.StubConfig) error {
	accounts := []repository.UserRecord{
		{Email: cfg.AdminEmail, Name: "Admin", Role: domain.RoleAdmin},
		{Email: cfg.FounderEmail, Name: "Founder Demo", CompanyName: "Startup Demo", Role: domain.RoleFounder},
	}
	passwords := []string{cfg.AdminPassword, cfg.FounderPassword}

	for i := range accounts {
		hash, err := auth.HashPassword(passwords[i], cfg.BcryptCost)
		if err != nil {
			return fmt.Errorf("seed %s: %w", accounts[i].Email, err)
		}
		accounts[i].PasswordHash = hash
		accounts[i].Active = true
		if err := s.Users.Create(ctx, &accounts[i]); err != nil {
			return fmt.Errorf("seed %s: %w", accounts[i].Email, err)
		}
	}
	return nil
}

// Serve accepts connections on ln until Shutdown.
func (s *Server) Serve(ln net.Listener) error {
	s.logger.Info("stub backend listening", zap.String("addr", ln.Addr().String()))
	return s.App.Listener(ln)
}

// Shutdown stops accepting connections and waits up to timeout for
// in-flight requests.
func (s *Server) Shutdown(timeout time.Duration) error {
	return s.App.ShutdownWithTimeout(timeout)
}
