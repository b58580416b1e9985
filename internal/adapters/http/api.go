package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

type requestSummary struct {
	ID           uint                 `json:"id"`
	SoftwareID   uint                 `json:"softwareId,omitempty"`
	SoftwareName string               `json:"softwareName"`
	UserName     string               `json:"userName,omitempty"`
	AccessType   domain.AccessType    `json:"accessType"`
	Reason       string               `json:"reason"`
	Status       domain.RequestStatus `json:"status"`
	CreatedDate  uint                 `json:"createdDate,omitempty"`
	CreatedAt    time.Time            `json:"createdAt"`
}

func (h *Handler) handleAPISignup(w http.ResponseWriter, r *http.Request) {
	var body signupBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.service.Register(r.Context(), body.Username, body.Password, body.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user": map[string]any{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

func (h *Handler) handleAPILogin(w http.ResponseWriter, r *http.Request) {
	var body loginBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if !h.allowLogin(w, r, body.Username) {
		return
	}
	token, role, err := h.service.Authenticate(r.Context(), body.Username, body.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "role": role})
}

// allowLogin consults the limiter and writes a 429 when the attempt is
// throttled.
func (h *Handler) allowLogin(w http.ResponseWriter, r *http.Request, username string) bool {
	if h.opts.Limiter == nil || h.opts.LoginRateLimit <= 0 {
		return true
	}
	key := clientIP(r) + "|" + strings.ToLower(strings.TrimSpace(username))
	decision := h.opts.Limiter.Allow(r.Context(), key, h.opts.LoginRateLimit)
	if decision.Allowed {
		return true
	}
	retry := int(time.Until(decision.ResetAt).Seconds())
	if retry < 1 {
		retry = 1
	}
	w.Header().Set("Retry-After", strconv.Itoa(retry))
	writeError(w, domain.Errorf(domain.ErrRateLimited, "Too many login attempts, try again later"))
	return false
}

func (h *Handler) handleAPIMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := claimsFromContext(r.Context())
	user, err := h.service.Me(r.Context(), claims.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": user.ID, "username": user.Username, "role": user.Role})
}

func (h *Handler) handleAPICreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.service.CreateRequest(r.Context(), callerFromContext(r.Context()), uint(body.SoftwareID), body.AccessType, body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Access request submitted successfully!",
		"success": true,
		"request": map[string]any{
			"id":           req.ID,
			"softwareId":   req.SoftwareID,
			"softwareName": req.SoftwareName(),
			"accessType":   req.AccessType,
			"reason":       req.Reason,
			"status":       req.Status,
		},
	})
}

func (h *Handler) handleAPIListMine(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListMine(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]requestSummary, 0, len(requests))
	for _, req := range requests {
		item := summarize(req)
		item.CreatedDate = req.ID
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out, "count": len(out)})
}

func (h *Handler) handleAPIListAll(w http.ResponseWriter, r *http.Request) {
	requests, err := h.service.ListAll(r.Context(), callerFromContext(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]requestSummary, 0, len(requests))
	for _, req := range requests {
		item := summarize(req)
		item.UserName = req.Username()
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": out, "count": len(out)})
}

func (h *Handler) handleAPIGetRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	req, err := h.service.GetRequest(r.Context(), callerFromContext(r.Context()), id)
	if err != nil {
		writeError(w, err)
		return
	}
	item := summarize(req)
	item.UserName = req.Username()
	writeJSON(w, http.StatusOK, map[string]any{"request": item})
}

func (h *Handler) handleAPIUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body updateStatusBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	req, err := h.service.UpdateStatus(r.Context(), callerFromContext(r.Context()), id, body.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Request status updated successfully",
		"request": map[string]any{
			"id":           req.ID,
			"status":       req.Status,
			"userName":     req.Username(),
			"softwareName": req.SoftwareName(),
		},
	})
}

func (h *Handler) handleAPIDeleteRequest(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteRequest(r.Context(), callerFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Request deleted successfully"})
}

func (h *Handler) handleAPIListSoftware(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListSoftware(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"software": list})
}

func (h *Handler) handleAPICreateSoftware(w http.ResponseWriter, r *http.Request) {
	var body softwareBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	var name, description string
	var levels []string
	if body.Name != nil {
		name = *body.Name
	}
	if body.Description != nil {
		description = *body.Description
	}
	if body.AccessLevels != nil {
		levels = *body.AccessLevels
	}
	software, err := h.service.CreateSoftware(r.Context(), callerFromContext(r.Context()), name, description, levels)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Software created", "software": software})
}

func (h *Handler) handleAPIUpdateSoftware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	var body softwareBody
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	patch := domain.SoftwarePatch{Name: body.Name, Description: body.Description}
	if body.AccessLevels != nil {
		levels := []string(*body.AccessLevels)
		patch.AccessLevels = &levels
	}
	software, err := h.service.UpdateSoftware(r.Context(), callerFromContext(r.Context()), id, patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Software updated", "software": software})
}

func (h *Handler) handleAPIDeleteSoftware(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.service.DeleteSoftware(r.Context(), callerFromContext(r.Context()), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Software deleted"})
}

func (h *Handler) handleAPIListAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	logs, err := h.service.ListAuditLogs(r.Context(), callerFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs, "count": len(logs)})
}

func (h *Handler) handleAPIListUsers(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.service.ListUsers(r.Context(), callerFromContext(r.Context()), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users, "count": len(users)})
}

func queryLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, domain.Errorf(domain.ErrValidation, "Invalid limit %q", raw)
	}
	return n, nil
}

func summarize(req domain.AccessRequest) requestSummary {
	return requestSummary{
		ID:           req.ID,
		SoftwareID:   req.SoftwareID,
		SoftwareName: req.SoftwareName(),
		AccessType:   req.AccessType,
		Reason:       req.Reason,
		Status:       req.Status,
		CreatedAt:    req.CreatedAt,
	}
}

