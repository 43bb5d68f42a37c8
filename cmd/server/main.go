package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"expense-ledger/internal/config"
	"expense-ledger/internal/handlers"
	applog "expense-ledger/internal/log"
	"expense-ledger/internal/metrics"
	"expense-ledger/internal/services"
	"expense-ledger/internal/storage"
	"expense-ledger/web"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := applog.New(applog.Config{
		Level:     applog.ParseLevel(cfg.Log.Level),
		Format:    cfg.Log.Format,
		Component: applog.ComponentApp,
		Output:    os.Stdout,
	})
	applog.SetDefault(logger)

	generated, err := cfg.EnsureSecret()
	if err != nil {
		return err
	}
	if generated {
		logger.Warn("SESSION_SECRET not set, using a random secret; sessions will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := storage.Open(ctx, storage.Options{Driver: cfg.DB.Driver, DSN: cfg.DSN()})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	storeLog := logger.WithComponent(applog.ComponentStorage)
	if n, err := db.CleanExpiredSessions(ctx); err != nil {
		storeLog.Warn("Failed to purge expired sessions", applog.FieldError, err)
	} else if n > 0 {
		storeLog.Info("Purged expired sessions", "count", n)
	}

	svc := services.New(db)
	if err := bootstrapAdmin(applog.NewContext(ctx, logger), db, svc.Accounts, cfg.Admin); err != nil {
		return err
	}

	m := metrics.New()
	h, err := handlers.NewHandlers(svc, db, web.TemplatesFS, m, handlers.Config{
		Secret:       []byte(cfg.Session.Secret),
		SecureCookie: cfg.Session.SecureCookie,
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           setupRouter(h, db, m, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "driver", db.Driver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

type userCounter interface {
	UserCount(ctx context.Context) (int, error)
}

// bootstrapAdmin registers the configured admin account when no users exist.
func bootstrapAdmin(ctx context.Context, users userCounter, accounts *services.Accounts, admin config.AdminConfig) error {
	if admin.User == "" || admin.Password == "" {
		return nil
	}

	n, err := users.UserCount(ctx)
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if n > 0 {
		return nil
	}

	_, err = accounts.Register(ctx, admin.User, admin.Password)
	if errors.Is(err, services.ErrDuplicateUsername) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create admin user: %w", err)
	}
	applog.FromContext(ctx).Info("Created admin user", "username", admin.User)
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
}

func setupRouter(h *handlers.Handlers, db pinger, m *metrics.Metrics, logger *applog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(applog.Middleware(logger.WithComponent(applog.ComponentHTTP)))
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	static, err := fs.Sub(web.StaticFS, "static")
	if err != nil {
		panic(err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			applog.FromContext(r.Context()).Error("Health check failed", applog.FieldError, err)
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", m.Handler())

	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/register", h.RegisterForm)
	r.Post("/register", h.Register)
	r.Get("/logout", h.Logout)

	r.Group(func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Get("/", h.Home)
		r.Post("/", h.AddExpense)
		r.Get("/delexpense", h.DeleteExpense)
		r.Get("/clear", h.Clear)
		r.Post("/addcategory", h.AddCategory)
		r.Get("/chart.svg", h.Chart)
	})

	return r
}
