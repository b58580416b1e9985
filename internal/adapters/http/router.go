package http

import (
	"net/http"

	"github.com/atvirokodosprendimai/accessdesk/internal/application"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/atvirokodosprendimai/accessdesk/internal/events"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const sessionCookieName = "accessdesk_session"

type Options struct {
	// Limiter throttles login attempts per client address and username.
	// Nil disables throttling.
	Limiter        domain.Limiter
	LoginRateLimit int
	Hub            *events.Hub
	CORSOrigins    []string
	SecureCookies  bool
}

type Handler struct {
	service *application.Service
	opts    Options
}

func NewRouter(service *application.Service, opts Options) http.Handler {
	h := &Handler{service: service, opts: opts}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(securityHeaders(apiCSP))
		api.Use(corsMiddleware(opts.CORSOrigins))

		api.Post("/auth/signup", h.handleAPISignup)
		api.Post("/auth/login", h.handleAPILogin)
		api.With(h.requireToken).Get("/auth/me", h.handleAPIMe)

		api.Route("/request", func(req chi.Router) {
			req.With(h.requireStreamCaller).Get("/stream", h.handleAPIStream)
			req.Group(func(authed chi.Router) {
				authed.Use(h.requireCaller)
				authed.Post("/", h.handleAPICreateRequest)
				authed.Get("/my-requests", h.handleAPIListMine)
				authed.Get("/all", h.handleAPIListAll)
				authed.Get("/{id}", h.handleAPIGetRequest)
				authed.Patch("/{id}", h.handleAPIUpdateStatus)
				authed.Delete("/{id}", h.handleAPIDeleteRequest)
			})
		})

		api.Route("/admin", func(admin chi.Router) {
			admin.Get("/software", h.handleAPIListSoftware)
			admin.With(h.optionalCaller).Post("/software", h.handleAPICreateSoftware)
			admin.With(h.optionalCaller).Patch("/software/{id}", h.handleAPIUpdateSoftware)
			admin.With(h.optionalCaller).Delete("/software/{id}", h.handleAPIDeleteSoftware)
			admin.With(h.requireCaller).Get("/audit", h.handleAPIListAuditLogs)
			admin.With(h.requireCaller).Get("/users", h.handleAPIListUsers)
		})
	})

	r.Group(func(gui chi.Router) {
		gui.Use(securityHeaders(htmlCSP))

		gui.Get("/login", h.handleLoginPage)
		gui.Post("/login", h.handleLogin)
		gui.Get("/register", h.handleRegisterPage)
		gui.Post("/register", h.handleRegister)
		gui.Post("/logout", h.handleLogout)

		gui.With(h.requireSession).Get("/", h.handleHomeRedirect)
		gui.With(h.requireSession).Get("/dashboard/employee", h.handleEmployeeDashboard)
		gui.With(h.requireSession).Get("/dashboard/manager", h.handleManagerDashboard)
		gui.With(h.requireSession).Get("/dashboard/admin", h.handleAdminDashboard)
		gui.With(h.requireSession).Post("/dashboard/requests", h.handleDashboardCreateRequest)
		gui.With(h.requireSession).Patch("/dashboard/requests/{id}/{status}", h.handleDashboardDecide)
		gui.With(h.requireSession).Post("/dashboard/software", h.handleDashboardCreateSoftware)
		gui.With(h.requireSession).Delete("/dashboard/software/{id}", h.handleDashboardDeleteSoftware)
	})

	return r
}
