package rpcjson

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/atvirokodosprendimai/accessdesk/internal/application"
	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
)

const (
	CodeValidation   = 40000
	CodeUnauthorized = 40100
	CodeForbidden    = 40300
	CodeNotFound     = 40400
	CodeInternal     = 50000
)

type Server struct {
	service  *application.Service
	listener net.Listener
	path     string
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params"`
	ID      any             `json:"id"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
	ID      any       `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type tokenParams struct {
	Token string `json:"token"`
}

type idParams struct {
	Token string `json:"token"`
	ID    uint   `json:"id"`
}

type softwareParams struct {
	Token        string    `json:"token"`
	ID           uint      `json:"id"`
	Name         *string   `json:"name"`
	Description  *string   `json:"description"`
	AccessLevels *[]string `json:"access_levels"`
}

// Start listens on a unix socket readable only by the owner. A stale socket
// file at path is removed first.
func Start(path string, service *application.Service) (*Server, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("rpc socket path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	_ = os.Remove(path)
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		_ = os.Remove(path)
		return nil, err
	}

	s := &Server{service: service, listener: ln, path: path}
	go s.serve()
	return s, nil
}

func (s *Server) serve() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) Close() error {
	err := s.listener.Close()
	_ = os.Remove(s.path)
	return err
}

func (s *Server) handleConn(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	dec := json.NewDecoder(conn)
	enc := json.NewEncoder(conn)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			_ = enc.Encode(response{JSONRPC: "2.0", Error: &rpcError{Code: -32700, Message: "parse error"}, ID: nil})
			return
		}

		resp := s.dispatch(context.Background(), req)
		if err := enc.Encode(resp); err != nil {
			return
		}
	}
}

func (s *Server) dispatch(ctx context.Context, req request) response {
	if req.JSONRPC != "2.0" || strings.TrimSpace(req.Method) == "" {
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32600, Message: "invalid request"}, ID: req.ID}
	}

	switch req.Method {
	case "auth.signup":
		var p struct {
			Username string `json:"username"`
			Password string `json:"password"`
			Role     string `json:"role"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		u, err := s.service.Register(ctx, p.Username, p.Password, p.Role)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, map[string]any{"id": u.ID, "username": u.Username, "role": u.Role})
	case "auth.login":
		var p struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		token, role, err := s.service.Authenticate(ctx, p.Username, p.Password)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, map[string]any{"token": token, "role": role})
	case "auth.whoami":
		caller, failed := s.caller(ctx, req)
		if failed != nil {
			return *failed
		}
		return ok(req.ID, map[string]any{
			"id":           caller.ID,
			"username":     caller.Username,
			"role":         caller.Role,
			"capabilities": s.service.Policy().Capabilities(caller.Role),
		})

	case "software.list":
		list, err := s.service.ListSoftware(ctx)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, list)
	case "software.create":
		var p softwareParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, err := s.optionalCaller(ctx, p.Token)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		var name, description string
		var levels []string
		if p.Name != nil {
			name = *p.Name
		}
		if p.Description != nil {
			description = *p.Description
		}
		if p.AccessLevels != nil {
			levels = *p.AccessLevels
		}
		out, err := s.service.CreateSoftware(ctx, caller, name, description, levels)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, out)
	case "software.update":
		var p softwareParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, err := s.optionalCaller(ctx, p.Token)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		out, err := s.service.UpdateSoftware(ctx, caller, p.ID, domain.SoftwarePatch{
			Name:         p.Name,
			Description:  p.Description,
			AccessLevels: p.AccessLevels,
		})
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, out)
	case "software.delete":
		var p idParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, err := s.optionalCaller(ctx, p.Token)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		if err := s.service.DeleteSoftware(ctx, caller, p.ID); err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, map[string]any{"deleted": p.ID})

	case "request.create":
		var p struct {
			Token      string `json:"token"`
			SoftwareID uint   `json:"software_id"`
			AccessType string `json:"access_type"`
			Reason     string `json:"reason"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, failed := s.callerFromToken(ctx, req.ID, p.Token)
		if failed != nil {
			return *failed
		}
		out, err := s.service.CreateRequest(ctx, caller, p.SoftwareID, p.AccessType, p.Reason)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, requestView(out))
	case "request.mine", "request.all":
		caller, failed := s.caller(ctx, req)
		if failed != nil {
			return *failed
		}
		list := s.service.ListMine
		if req.Method == "request.all" {
			list = s.service.ListAll
		}
		out, err := list(ctx, caller)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		views := make([]map[string]any, 0, len(out))
		for _, r := range out {
			views = append(views, requestView(r))
		}
		return ok(req.ID, views)
	case "request.get":
		var p idParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, failed := s.callerFromToken(ctx, req.ID, p.Token)
		if failed != nil {
			return *failed
		}
		out, err := s.service.GetRequest(ctx, caller, p.ID)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, requestView(out))
	case "request.update_status":
		var p struct {
			Token  string `json:"token"`
			ID     uint   `json:"id"`
			Status string `json:"status"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, failed := s.callerFromToken(ctx, req.ID, p.Token)
		if failed != nil {
			return *failed
		}
		out, err := s.service.UpdateStatus(ctx, caller, p.ID, p.Status)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, requestView(out))
	case "request.delete":
		var p idParams
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, failed := s.callerFromToken(ctx, req.ID, p.Token)
		if failed != nil {
			return *failed
		}
		if err := s.service.DeleteRequest(ctx, caller, p.ID); err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, map[string]any{"deleted": p.ID})

	case "audit.list", "users.list":
		var p struct {
			Token string `json:"token"`
			Limit int    `json:"limit"`
		}
		if !decodeParams(req.Params, &p) {
			return invalidParams(req.ID)
		}
		caller, failed := s.callerFromToken(ctx, req.ID, p.Token)
		if failed != nil {
			return *failed
		}
		var (
			out any
			err error
		)
		if req.Method == "audit.list" {
			out, err = s.service.ListAuditLogs(ctx, caller, p.Limit)
		} else {
			out, err = s.service.ListUsers(ctx, caller, p.Limit)
		}
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return ok(req.ID, out)
	default:
		return response{JSONRPC: "2.0", Error: &rpcError{Code: -32601, Message: "method not found"}, ID: req.ID}
	}
}

func (s *Server) caller(ctx context.Context, req request) (*domain.User, *response) {
	var p tokenParams
	if !decodeParams(req.Params, &p) {
		resp := invalidParams(req.ID)
		return nil, &resp
	}
	return s.callerFromToken(ctx, req.ID, p.Token)
}

func (s *Server) callerFromToken(ctx context.Context, id any, token string) (*domain.User, *response) {
	u, err := s.service.ResolveCaller(ctx, token)
	if err != nil {
		resp := errorResponse(id, err)
		return nil, &resp
	}
	return &u, nil
}

// optionalCaller resolves a token when one is supplied. Catalog calls may be
// anonymous; the policy decides.
func (s *Server) optionalCaller(ctx context.Context, token string) (*domain.User, error) {
	if strings.TrimSpace(token) == "" {
		return nil, nil
	}
	u, err := s.service.ResolveCaller(ctx, token)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func requestView(r domain.AccessRequest) map[string]any {
	return map[string]any{
		"id":            r.ID,
		"user_id":       r.UserID,
		"user_name":     r.Username(),
		"software_id":   r.SoftwareID,
		"software_name": r.SoftwareName(),
		"access_type":   r.AccessType,
		"reason":        r.Reason,
		"status":        r.Status,
		"created_at":    r.CreatedAt,
	}
}

func decodeParams(raw json.RawMessage, out any) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, out) == nil
}

func ok(id any, result any) response {
	return response{JSONRPC: "2.0", Result: result, ID: id}
}

func invalidParams(id any) response {
	return response{JSONRPC: "2.0", Error: &rpcError{Code: -32602, Message: "invalid params"}, ID: id}
}

func rpcErrorFor(err error) *rpcError {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrRateLimited):
		return &rpcError{Code: CodeValidation, Message: err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return &rpcError{Code: CodeUnauthorized, Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return &rpcError{Code: CodeForbidden, Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return &rpcError{Code: CodeNotFound, Message: err.Error()}
	default:
		log.Printf("rpc: %v", err)
		return &rpcError{Code: CodeInternal, Message: fmt.Sprintf("internal error: %v", err)}
	}
}

func errorResponse(id any, err error) response {
	return response{JSONRPC: "2.0", Error: rpcErrorFor(err), ID: id}
}
