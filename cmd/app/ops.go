package main

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

type userView struct {
	ID           uint     `json:"id"`
	Username     string   `json:"username"`
	Role         string   `json:"role"`
	Capabilities []string `json:"capabilities,omitempty"`
}

type loginResult struct {
	Token string `json:"token"`
	Role  string `json:"role"`
}

// requestView is the CLI's uniform shape for a request. The REST API and the
// socket use different field names, so each transport decodes into its own
// struct first.
type requestView struct {
	ID           uint   `json:"id"`
	UserName     string `json:"user_name"`
	SoftwareID   uint   `json:"software_id"`
	SoftwareName string `json:"software_name"`
	AccessType   string `json:"access_type"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
}

type restRequest struct {
	ID           uint   `json:"id"`
	UserName     string `json:"userName"`
	SoftwareID   uint   `json:"softwareId"`
	SoftwareName string `json:"softwareName"`
	AccessType   string `json:"accessType"`
	Reason       string `json:"reason"`
	Status       string `json:"status"`
}

func (r restRequest) view() requestView {
	return requestView{
		ID:           r.ID,
		UserName:     r.UserName,
		SoftwareID:   r.SoftwareID,
		SoftwareName: r.SoftwareName,
		AccessType:   r.AccessType,
		Reason:       r.Reason,
		Status:       r.Status,
	}
}

func doSignup(ctx context.Context, cfg cliConfig, username, password, role string) (userView, error) {
	in := map[string]any{"username": username, "password": password, "role": role}
	var out userView
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "auth.signup", in, &out)
		return out, err
	}
	var resp struct {
		User userView `json:"user"`
	}
	err := newAPIClient(cfg.Server, "").request(ctx, http.MethodPost, "/api/auth/signup", in, &resp)
	return resp.User, err
}

func doLogin(ctx context.Context, cfg cliConfig, username, password string) (loginResult, error) {
	in := map[string]any{"username": username, "password": password}
	var out loginResult
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "auth.login", in, &out)
		return out, err
	}
	err := newAPIClient(cfg.Server, "").request(ctx, http.MethodPost, "/api/auth/login", in, &out)
	return out, err
}

func doWhoAmI(ctx context.Context, cfg cliConfig) (userView, error) {
	var out userView
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "auth.whoami", map[string]any{"token": cfg.Token}, &out)
		return out, err
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/auth/me", nil, &out)
	return out, err
}

func doSoftwareList(ctx context.Context, cfg cliConfig) ([]domain.Software, error) {
	var out []domain.Software
	if cfg.Transport == "uds" {
		err := newRPCClient(cfg.Socket).call(ctx, "software.list", map[string]any{}, &out)
		return out, err
	}
	var resp struct {
		Software []domain.Software `json:"software"`
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/admin/software", nil, &resp)
	return resp.Software, err
}

// doSoftwareSave creates an entry when id is zero and patches it otherwise.
// Only keys present in fields are sent.
func doSoftwareSave(ctx context.Context, cfg cliConfig, id uint, fields map[string]any) (domain.Software, error) {
	var out domain.Software
	if cfg.Transport == "uds" {
		params := map[string]any{"token": cfg.Token}
		for k, v := range fields {
			if k == "accessLevels" {
				k = "access_levels"
			}
			params[k] = v
		}
		method := "software.create"
		if id != 0 {
			method = "software.update"
			params["id"] = id
		}
		err := newRPCClient(cfg.Socket).call(ctx, method, params, &out)
		return out, err
	}
	var resp struct {
		Software domain.Software `json:"software"`
	}
	client := newAPIClient(cfg.Server, cfg.Token)
	var err error
	if id == 0 {
		err = client.request(ctx, http.MethodPost, "/api/admin/software", fields, &resp)
	} else {
		err = client.request(ctx, http.MethodPatch, "/api/admin/software/"+uintToString(id), fields, &resp)
	}
	return resp.Software, err
}

func doSoftwareDelete(ctx context.Context, cfg cliConfig, id uint) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "software.delete", map[string]any{"token": cfg.Token, "id": id}, nil)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodDelete, "/api/admin/software/"+uintToString(id), nil, nil)
}

func doRequestCreate(ctx context.Context, cfg cliConfig, softwareID uint, accessType, reason string) (requestView, error) {
	if cfg.Transport == "uds" {
		var out requestView
		err := newRPCClient(cfg.Socket).call(ctx, "request.create", map[string]any{
			"token": cfg.Token, "software_id": softwareID, "access_type": accessType, "reason": reason,
		}, &out)
		return out, err
	}
	var resp struct {
		Request restRequest `json:"request"`
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodPost, "/api/request", map[string]any{
		"softwareId": softwareID, "accessType": accessType, "reason": reason,
	}, &resp)
	return resp.Request.view(), err
}

func doRequestList(ctx context.Context, cfg cliConfig, all bool) ([]requestView, error) {
	if cfg.Transport == "uds" {
		method := "request.mine"
		if all {
			method = "request.all"
		}
		var out []requestView
		err := newRPCClient(cfg.Socket).call(ctx, method, map[string]any{"token": cfg.Token}, &out)
		return out, err
	}
	path := "/api/request/my-requests"
	if all {
		path = "/api/request/all"
	}
	var resp struct {
		Requests []restRequest `json:"requests"`
	}
	if err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]requestView, 0, len(resp.Requests))
	for _, r := range resp.Requests {
		out = append(out, r.view())
	}
	return out, nil
}

func doRequestGet(ctx context.Context, cfg cliConfig, id uint) (requestView, error) {
	if cfg.Transport == "uds" {
		var out requestView
		err := newRPCClient(cfg.Socket).call(ctx, "request.get", map[string]any{"token": cfg.Token, "id": id}, &out)
		return out, err
	}
	var resp struct {
		Request restRequest `json:"request"`
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, "/api/request/"+uintToString(id), nil, &resp)
	return resp.Request.view(), err
}

func doRequestStatus(ctx context.Context, cfg cliConfig, id uint, status string) (requestView, error) {
	if cfg.Transport == "uds" {
		var out requestView
		err := newRPCClient(cfg.Socket).call(ctx, "request.update_status", map[string]any{"token": cfg.Token, "id": id, "status": status}, &out)
		return out, err
	}
	var resp struct {
		Request restRequest `json:"request"`
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodPatch, "/api/request/"+uintToString(id), map[string]any{"status": status}, &resp)
	return resp.Request.view(), err
}

func doRequestDelete(ctx context.Context, cfg cliConfig, id uint) error {
	if cfg.Transport == "uds" {
		return newRPCClient(cfg.Socket).call(ctx, "request.delete", map[string]any{"token": cfg.Token, "id": id}, nil)
	}
	return newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodDelete, "/api/request/"+uintToString(id), nil, nil)
}

func doAuditList(ctx context.Context, cfg cliConfig, limit int) ([]domain.AuditRecord, error) {
	if cfg.Transport == "uds" {
		var out []domain.AuditRecord
		err := newRPCClient(cfg.Socket).call(ctx, "audit.list", map[string]any{"token": cfg.Token, "limit": limit}, &out)
		return out, err
	}
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/admin/audit"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var resp struct {
		Logs []domain.AuditRecord `json:"logs"`
	}
	err := newAPIClient(cfg.Server, cfg.Token).request(ctx, http.MethodGet, path, nil, &resp)
	return resp.Logs, err
}
