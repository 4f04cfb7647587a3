// Package apiclient is the gRPC client used by the CLI and TUI to talk to
// the validation hub.
package apiclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/keepalive"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/venturahq/ventura/internal/clientconfig"
	"github.com/venturahq/ventura/internal/rpccontract"
)

type Client struct {
	conn          *grpc.ClientConn
	token         string
	requestTO     time.Duration
	retryAttempts int
}

type StartInput struct {
	Description  string
	Industry     string
	TargetMarket string
	BusinessMod  string
	Region       string
	Financials   map[string]any
}

func New(cfg clientconfig.Config, token string) (*Client, error) {
	cred := grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12}))
	if cfg.GRPCInsecure || strings.HasPrefix(cfg.GRPCAddr, "127.0.0.1:") || strings.HasPrefix(cfg.GRPCAddr, "localhost:") {
		cred = grpc.WithTransportCredentials(insecure.NewCredentials())
	}

	conn, err := grpc.NewClient(
		cfg.GRPCAddr,
		cred,
		grpc.WithKeepaliveParams(keepalive.ClientParameters{
			Time:                25 * time.Second,
			Timeout:             6 * time.Second,
			PermitWithoutStream: true,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", cfg.GRPCAddr, err)
	}

	// Trigger initial connect attempt on startup.
	conn.Connect()

	return &Client{
		conn:          conn,
		token:         strings.TrimSpace(token),
		requestTO:     cfg.RequestTimeout,
		retryAttempts: cfg.RetryAttempts,
	}, nil
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) StartValidation(ctx context.Context, input StartInput) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodStartValidation, startPayload(input))
}

func (c *Client) StartSwarm(ctx context.Context, input StartInput) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodStartSwarm, startPayload(input))
}

func (c *Client) GetResult(ctx context.Context, sessionID string) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodGetResult, map[string]any{
		"session_id": strings.TrimSpace(sessionID),
	})
}

func (c *Client) CancelSession(ctx context.Context, sessionID string) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodCancelSession, map[string]any{
		"session_id": strings.TrimSpace(sessionID),
	})
}

func (c *Client) ListSessions(ctx context.Context) ([]any, error) {
	request, err := structpb.NewStruct(map[string]any{})
	if err != nil {
		return nil, err
	}
	response := &structpb.ListValue{}
	if err := c.invoke(ctx, rpccontract.MethodListSessions, request, response); err != nil {
		return nil, err
	}
	return response.AsSlice(), nil
}

func (c *Client) GetSummary(ctx context.Context) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodGetSummary, map[string]any{})
}

func (c *Client) GetHealth(ctx context.Context) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodGetHealth, map[string]any{})
}

func (c *Client) ExportState(ctx context.Context) (map[string]any, error) {
	return c.invokeStruct(ctx, rpccontract.MethodExportState, map[string]any{})
}

func startPayload(input StartInput) map[string]any {
	payload := map[string]any{
		"description":    strings.TrimSpace(input.Description),
		"industry":       strings.TrimSpace(input.Industry),
		"target_market":  strings.TrimSpace(input.TargetMarket),
		"business_model": strings.TrimSpace(input.BusinessMod),
		"region":         strings.TrimSpace(input.Region),
	}
	if input.Financials != nil {
		payload["financials"] = input.Financials
	}
	return payload
}

func (c *Client) invokeStruct(ctx context.Context, method string, payload map[string]any) (map[string]any, error) {
	request, err := structpb.NewStruct(payload)
	if err != nil {
		return nil, err
	}
	response := &structpb.Struct{}
	if err := c.invoke(ctx, method, request, response); err != nil {
		return nil, err
	}
	return response.AsMap(), nil
}

func (c *Client) invoke(ctx context.Context, method string, request, response any) error {
	attempts := c.retryAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.requestTO)
		callCtx = c.withAuth(callCtx)

		invokeErr := c.conn.Invoke(callCtx, method, request, response)
		cancel()
		if invokeErr == nil {
			return nil
		}
		lastErr = invokeErr
		if !isRetryable(invokeErr) || attempt == attempts {
			break
		}
		time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
	}
	return lastErr
}

func (c *Client) withAuth(ctx context.Context) context.Context {
	if strings.TrimSpace(c.token) == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, "x-ventura-token", c.token)
}

func isRetryable(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	default:
		return false
	}
}
