package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/jwtauth"

	"github.com/wavespeak/marquee/pkg/marquee"
	"github.com/wavespeak/marquee/pkg/marquee/api"
	"github.com/wavespeak/marquee/pkg/marquee/config"
	"github.com/wavespeak/marquee/pkg/marquee/session"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DBConnectTimeout)
	svc, err := cfg.BuildService(ctx)
	cancel()
	if err != nil {
		slog.Error("failed to build service", "error", err)
		os.Exit(1)
	}

	handler, err := routes(cfg, svc)
	if err != nil {
		slog.Error("failed to build routes", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "env", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func routes(cfg *config.Config, svc marquee.Service) (http.Handler, error) {
	defaultLang, err := marquee.ParseLanguage(cfg.DefaultLanguage)
	if err != nil {
		return nil, err
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	resources := api.NewResourceHandler(svc, defaultLang)
	r.Route("/api", func(r chi.Router) {
		r.Mount("/", resources.Routes())

		if !cfg.AdminEnabled() {
			slog.Warn("admin routes disabled: redis address or JWT secret not configured")
			return
		}

		client, err := cfg.BuildRedis(context.Background())
		if err != nil {
			slog.Error("failed to connect to redis, admin routes disabled", "error", err)
			return
		}
		sessions := session.New(client, cfg.SessionTTL)
		ja := jwtauth.New("HS256", []byte(cfg.JWTSecret), nil)

		auth := api.NewAuthHandler(envAuthenticator{cfg}, sessions, ja, cfg.SessionTTL)
		r.Mount("/auth", auth.Routes())
		r.Group(func(r chi.Router) {
			r.Use(api.AdminGate(ja, sessions))
			r.Post("/auth/logout", auth.Logout)
			r.Mount("/admin", resources.AdminRoutes())
		})
	})

	return r, nil
}

// envAuthenticator checks credentials against the configured admin account.
type envAuthenticator struct {
	cfg *config.Config
}

func (a envAuthenticator) Authenticate(_ context.Context, username, password string) (string, error) {
	if a.cfg.AdminPassword == "" {
		return "", errors.New("admin login not configured")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.cfg.AdminUser))
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(a.cfg.AdminPassword))
	if userOK&passOK != 1 {
		return "", errors.New("invalid credentials")
	}
	return username, nil
}
