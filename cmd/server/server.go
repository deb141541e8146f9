package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"github.com/rahul4469/qrguard/internal/config"
	"github.com/rahul4469/qrguard/internal/controllers"
	"github.com/rahul4469/qrguard/internal/crypto"
	"github.com/rahul4469/qrguard/internal/middleware"
	"github.com/rahul4469/qrguard/internal/models"
	"github.com/rahul4469/qrguard/internal/services"
	"github.com/rahul4469/qrguard/internal/views"
	"github.com/rahul4469/qrguard/static"
	"github.com/rahul4469/qrguard/templates"
	"github.com/valkey-io/valkey-go"
)

// dependencies are the services shared by the controllers.
type dependencies struct {
	db       *models.Database
	users    *models.UserService
	sessions *models.SessionService
	history  *models.HistoryService
	scans    *models.ScanService
	reports  *models.ReportService
	settings *models.SettingsService
	urls     services.URLStore
	analyzer *services.Analyzer
	cookies  middleware.CookieCodec
	valkey   valkey.Client
}

func newDependencies(ctx context.Context, cfg *config.Config, db *models.Database) (*dependencies, error) {
	codec, err := crypto.NewCookieCodec(cfg.Security.GuestCookieSecret, cfg.Security.GuestDuration)
	if err != nil {
		return nil, fmt.Errorf("failed to create guest cookie codec: %w", err)
	}

	deps := &dependencies{
		db:       db,
		users:    models.NewUserService(db.Pool, cfg.Security.BcryptCost),
		sessions: models.NewSessionService(db.Pool, cfg.Security.SessionDuration),
		history:  models.NewHistoryService(db.Pool, cfg.Limits.GuestHistoryLimit),
		scans:    models.NewScanService(db.Pool),
		reports:  models.NewReportService(db.Pool),
		settings: models.NewSettingsService(db.Pool),
		cookies:  codec,
	}

	var urls services.URLStore = models.NewURLService(db.Pool)
	if cfg.Valkey.Address != "" {
		client, err := services.NewValkeyClient(ctx, cfg.Valkey)
		if err != nil {
			// The cache is optional; analysis keeps working against Postgres.
			slog.Warn("Label cache disabled", slog.Any("error", err))
		} else {
			deps.valkey = client
			urls = services.NewLabelCache(client, cfg.Valkey.TTL, urls)
			slog.Info("Label cache enabled", slog.String("address", cfg.Valkey.Address))
		}
	}
	deps.urls = urls
	deps.analyzer = services.NewAnalyzer(urls, deps.history, cfg.Limits.GuestHistoryLimit)

	return deps, nil
}

func (d *dependencies) Close() {
	if d.valkey != nil {
		d.valkey.Close()
	}
}

func newRouter(cfg *config.Config, deps *dependencies) (http.Handler, error) {
	homeTpl, err := views.ParseFS(templates.FS, "pages/home.gohtml")
	if err != nil {
		return nil, err
	}
	loginTpl, err := views.ParseFS(templates.FS, "pages/login.gohtml")
	if err != nil {
		return nil, err
	}
	registerTpl, err := views.ParseFS(templates.FS, "pages/register.gohtml")
	if err != nil {
		return nil, err
	}

	// Setup Controllers ---------------
	staticCtrl := controllers.NewStaticController(homeTpl, deps.history, deps.db)
	analyzeCtrl := controllers.NewAnalyzeController(deps.analyzer)
	historyCtrl := controllers.NewHistoryController(deps.history, deps.settings)
	scanCtrl := controllers.NewScanController(deps.scans)
	boardCtrl := controllers.NewBoardController(deps.reports, deps.urls)
	settingsCtrl := controllers.NewSettingsController(deps.settings)
	authCtrl := controllers.NewAuthController(
		deps.users,
		deps.sessions,
		deps.history,
		controllers.SessionCookies{
			Secure:   cfg.Security.SecureCookies,
			Duration: cfg.Security.SessionDuration,
		},
		controllers.AuthTemplates{Login: loginTpl, Register: registerTpl},
	)

	authMw := middleware.NewAuthMiddleware(deps.sessions, controllers.CookieSession)
	guestMw := middleware.NewGuestMiddleware(deps.cookies, cfg.Security.GuestDuration, cfg.Security.SecureCookies)

	csrfMw := csrf.Protect(
		[]byte(cfg.Security.CSRFSecret),
		csrf.Secure(cfg.Security.SecureCookies),
		csrf.Path("/"),
		csrf.TrustedOrigins(cfg.Security.CSRFTrustedOrigins),
	)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(authMw.SetUser)
	r.Use(guestMw.AssignGuest)

	r.Get("/", staticCtrl.GetHome)
	r.Get("/healthz", staticCtrl.HealthCheck)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(static.FS)))

	// ---- JSON API (scanner clients, no CSRF) ----
	r.Post("/analyze", analyzeCtrl.PostAnalyze)
	r.Post("/analyze/", analyzeCtrl.PostAnalyze)
	r.Get("/history", historyCtrl.GetHistory)
	r.Route("/scan", func(r chi.Router) {
		r.Post("/log", scanCtrl.PostLog)
		r.Get("/all", scanCtrl.GetAll)
	})
	r.Route("/board", func(r chi.Router) {
		r.Post("/report", boardCtrl.PostReport)
		r.Get("/reports", boardCtrl.GetReports)
		r.Get("/malicious", boardCtrl.GetMalicious)
		r.Group(func(r chi.Router) {
			r.Use(authMw.RequireAdmin)
			r.Post("/report/{id}/judgment", boardCtrl.PostJudgment)
			r.Get("/report/{id}/analyze", boardCtrl.GetReportAnalysis)
		})
	})
	r.Route("/settings", func(r chi.Router) {
		r.Get("/", settingsCtrl.GetSettings)
		r.Post("/", settingsCtrl.PostSettings)
		r.Get("/go-history", settingsCtrl.GetGoHistory)
	})

	r.Route("/auth", func(r chi.Router) {
		r.Get("/logout", authCtrl.GetLogout)
		r.Get("/check-email", authCtrl.GetCheckEmail)
		r.Get("/me", authCtrl.GetMe)
		r.Get("/guest-login", authCtrl.GetGuestLogin)
		r.With(authMw.RequireUser).Get("/profile-details", authCtrl.GetProfileDetails)
		r.With(authMw.RequireUser).Post("/update-nickname", authCtrl.PostUpdateNickname)

		// ---- Form routes ----
		r.Group(func(r chi.Router) {
			if !cfg.Security.SecureCookies {
				r.Use(markPlaintext)
			}
			r.Use(csrfMw)
			r.Get("/login", authCtrl.GetLogin)
			r.Post("/loginProc", authCtrl.PostLoginProc)
			r.Get("/register", authCtrl.GetRegister)
			r.Post("/registerProc", authCtrl.PostRegisterProc)
		})
	})

	var handler http.Handler = r
	if cfg.Sentry.DSN != "" {
		handler = sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle(handler)
	}
	return handler, nil
}

// markPlaintext lets gorilla/csrf accept plain HTTP origins during
// local development.
func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}
