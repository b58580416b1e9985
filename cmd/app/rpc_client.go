package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// rpcClient speaks JSON-RPC 2.0 to the server's unix socket, one connection
// per call.
type rpcClient struct {
	socket  string
	timeout time.Duration
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
	ID      int    `json:"id"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcRespError   `json:"error"`
	ID      any             `json:"id"`
}

type rpcRespError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcRespError) Error() string {
	return fmt.Sprintf("rpc error (%d %s): %s", e.Code, rpcCodeName(e.Code), e.Message)
}

func rpcCodeName(code int) string {
	switch code {
	case 40000:
		return "invalid"
	case 40100:
		return "unauthorized"
	case 40300:
		return "forbidden"
	case 40400:
		return "not found"
	case 50000:
		return "internal"
	default:
		return "protocol"
	}
}

func newRPCClient(socket string) *rpcClient {
	return &rpcClient{socket: socket, timeout: 20 * time.Second}
}

func (c *rpcClient) call(ctx context.Context, method string, params any, out any) error {
	dialer := net.Dialer{Timeout: 5 * time.Second}
	conn, err := dialer.DialContext(ctx, "unix", c.socket)
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.socket, err)
	}
	defer func() { _ = conn.Close() }()
	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	_ = conn.SetDeadline(deadline)

	req := rpcRequest{JSONRPC: "2.0", Method: method, Params: params, ID: 1}
	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return err
	}

	var resp rpcResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}
