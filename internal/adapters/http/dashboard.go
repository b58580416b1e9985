package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/atvirokodosprendimai/accessdesk/internal/ui"
	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"
)

func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	renderPage(r.Context(), w, http.StatusOK, ui.LoginPage(""))
}

func (h *Handler) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	renderPage(r.Context(), w, http.StatusOK, ui.RegisterPage(""))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderPage(r.Context(), w, http.StatusBadRequest, ui.LoginPage("invalid form"))
		return
	}
	username := r.FormValue("username")
	if !h.allowLoginForm(w, r, username) {
		return
	}
	token, role, err := h.service.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		renderPage(r.Context(), w, statusFor(err), ui.LoginPage(err.Error()))
		return
	}
	h.setSessionCookie(w, token)
	http.Redirect(w, r, dashboardPath(role), http.StatusSeeOther)
}

func (h *Handler) allowLoginForm(w http.ResponseWriter, r *http.Request, username string) bool {
	if h.opts.Limiter == nil || h.opts.LoginRateLimit <= 0 {
		return true
	}
	key := clientIP(r) + "|" + strings.ToLower(strings.TrimSpace(username))
	if h.opts.Limiter.Allow(r.Context(), key, h.opts.LoginRateLimit).Allowed {
		return true
	}
	renderPage(r.Context(), w, http.StatusTooManyRequests, ui.LoginPage("Too many login attempts, try again later"))
	return false
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		renderPage(r.Context(), w, http.StatusBadRequest, ui.RegisterPage("invalid form"))
		return
	}
	username := r.FormValue("username")
	password := r.FormValue("password")
	if _, err := h.service.Register(r.Context(), username, password, r.FormValue("role")); err != nil {
		renderPage(r.Context(), w, statusFor(err), ui.RegisterPage(err.Error()))
		return
	}
	token, role, err := h.service.Authenticate(r.Context(), username, password)
	if err != nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	h.setSessionCookie(w, token)
	http.Redirect(w, r, dashboardPath(role), http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	h.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *Handler) handleHomeRedirect(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	http.Redirect(w, r, dashboardPath(caller.Role), http.StatusSeeOther)
}

func dashboardPath(role domain.Role) string {
	switch role {
	case domain.RoleAdmin:
		return "/dashboard/admin"
	case domain.RoleManager:
		return "/dashboard/manager"
	default:
		return "/dashboard/employee"
	}
}

func (h *Handler) handleEmployeeDashboard(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	software, err := h.service.ListSoftware(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	requests, err := h.service.ListMine(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	renderPage(r.Context(), w, http.StatusOK, ui.EmployeeDashboard(*caller, software, requests))
}

func (h *Handler) handleManagerDashboard(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if caller.Role == domain.RoleEmployee {
		http.Redirect(w, r, dashboardPath(caller.Role), http.StatusSeeOther)
		return
	}
	requests, err := h.service.ListAll(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	renderPage(r.Context(), w, http.StatusOK, ui.ManagerDashboard(*caller, requests))
}

func (h *Handler) handleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	caller := callerFromContext(r.Context())
	if caller.Role != domain.RoleAdmin {
		http.Redirect(w, r, dashboardPath(caller.Role), http.StatusSeeOther)
		return
	}
	software, err := h.service.ListSoftware(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	requests, err := h.service.ListAll(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	renderPage(r.Context(), w, http.StatusOK, ui.AdminDashboard(*caller, software, requests))
}

type requestSignals struct {
	SoftwareID string `json:"softwareId"`
	AccessType string `json:"accessType"`
	Reason     string `json:"reason"`
}

func (h *Handler) handleDashboardCreateRequest(w http.ResponseWriter, r *http.Request) {
	var sig requestSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid request form")
		return
	}
	var softwareID uint
	if raw := strings.TrimSpace(sig.SoftwareID); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			h.renderFlash(r.Context(), w, http.StatusBadRequest, "Software ID must be a number")
			return
		}
		softwareID = uint(parsed)
	}
	caller := callerFromContext(r.Context())
	req, err := h.service.CreateRequest(r.Context(), caller, softwareID, sig.AccessType, sig.Reason)
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	requests, err := h.service.ListMine(r.Context(), caller)
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.Flash("Requested "+string(req.AccessType)+" access to "+req.SoftwareName(), "info"),
		ui.RequestsTable(requests, false, false),
	)
}

func (h *Handler) handleDashboardDecide(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	caller := callerFromContext(r.Context())
	req, err := h.service.UpdateStatus(r.Context(), caller, id, chi.URLParam(r, "status"))
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	requests, err := h.service.ListAll(r.Context(), caller)
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	renderHTMLFragments(r.Context(), w, http.StatusOK,
		ui.Flash("Request #"+strconv.FormatUint(uint64(req.ID), 10)+" "+strings.ToLower(string(req.Status)), "info"),
		ui.RequestsTable(requests, true, true),
	)
}

type softwareSignals struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	AccessLevels string `json:"accessLevels"`
}

func (h *Handler) handleDashboardCreateSoftware(w http.ResponseWriter, r *http.Request) {
	var sig softwareSignals
	if err := datastar.ReadSignals(r, &sig); err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, "invalid software form")
		return
	}
	caller := callerFromContext(r.Context())
	if caller.Role != domain.RoleAdmin {
		h.renderFlash(r.Context(), w, http.StatusForbidden, "Only administrators manage the catalog")
		return
	}
	software, err := h.service.CreateSoftware(r.Context(), caller, sig.Name, sig.Description, []string{sig.AccessLevels})
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	h.renderCatalog(r.Context(), w, "Added "+software.Name)
}

func (h *Handler) handleDashboardDeleteSoftware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.renderFlash(r.Context(), w, http.StatusBadRequest, err.Error())
		return
	}
	caller := callerFromContext(r.Context())
	if caller.Role != domain.RoleAdmin {
		h.renderFlash(r.Context(), w, http.StatusForbidden, "Only administrators manage the catalog")
		return
	}
	software, err := h.service.GetSoftware(r.Context(), id)
	if err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	if err := h.service.DeleteSoftware(r.Context(), caller, id); err != nil {
		h.renderFlash(r.Context(), w, statusFor(err), err.Error())
		return
	}
	h.renderCatalog(r.Context(), w, "Deleted "+software.Name)
}

func (h *Handler) renderCatalog(ctx context.Context, w http.ResponseWriter, message string) {
	software, err := h.service.ListSoftware(ctx)
	if err != nil {
		h.renderFlash(ctx, w, http.StatusInternalServerError, err.Error())
		return
	}
	renderHTMLFragments(ctx, w, http.StatusOK,
		ui.Flash(message, "info"),
		ui.SoftwareTable(software, true),
	)
}

func renderPage(ctx context.Context, w http.ResponseWriter, status int, page templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = page.Render(ctx, w)
}

func renderHTMLFragments(ctx context.Context, w http.ResponseWriter, status int, fragments ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	for _, fragment := range fragments {
		if fragment == nil {
			continue
		}
		_ = fragment.Render(ctx, w)
	}
}

func (h *Handler) renderFlash(ctx context.Context, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if status >= 400 {
		_ = ui.Flash(message, "error").Render(ctx, w)
		return
	}
	_ = ui.Flash(message, "info").Render(ctx, w)
}
