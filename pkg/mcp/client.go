// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	defaultCallTimeout  = 10 * time.Second
	defaultMaxRetries   = 2
	defaultRetryBackoff = 200 * time.Millisecond
	defaultToolCacheTTL = 30 * time.Second

	handshakeTimeout = 10 * time.Second
)

// Client wraps an mcp-go transport with per-call timeouts, bounded retry
// with exponential backoff, and a short-lived tool discovery cache. Tool
// listings rarely change mid-session, so repeat discovery during a build
// loop is served from memory.
type Client struct {
	inner    client.MCPClient
	timeout  time.Duration
	retries  int
	backoff  time.Duration
	cacheTTL time.Duration

	toolsMu   sync.Mutex
	tools     []mcp.Tool
	fetchedAt time.Time
}

// ClientOption customizes the client wrapper behavior.
type ClientOption func(*Client)

// WithTimeout sets the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetry configures how many times a failed call is retried and the
// base backoff between attempts.
func WithRetry(retries int, backoff time.Duration) ClientOption {
	return func(c *Client) {
		if retries >= 0 {
			c.retries = retries
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithToolCacheTTL sets how long a tool listing stays cached. Zero
// disables the cache.
func WithToolCacheTTL(ttl time.Duration) ClientOption {
	return func(c *Client) {
		if ttl >= 0 {
			c.cacheTTL = ttl
		}
	}
}

// NewClient wraps an already-initialized MCP client implementation.
func NewClient(c client.MCPClient, opts ...ClientOption) *Client {
	wrapped := &Client{
		inner:    c,
		timeout:  defaultCallTimeout,
		retries:  defaultMaxRetries,
		backoff:  defaultRetryBackoff,
		cacheTTL: defaultToolCacheTTL,
	}
	for _, opt := range opts {
		opt(wrapped)
	}
	return wrapped
}

// NewClientWithStdio launches command as an MCP server subprocess and
// connects over its stdio.
func NewClientWithStdio(command string, args []string, opts ...ClientOption) (*Client, error) {
	return NewClientWithStdioProtocol(command, args, mcp.LATEST_PROTOCOL_VERSION, opts...)
}

// NewClientWithStdioProtocol is NewClientWithStdio pinned to a specific
// protocol version.
func NewClientWithStdioProtocol(command string, args []string, protocolVersion string, opts ...ClientOption) (*Client, error) {
	transport, err := client.NewStdioMCPClient(command, nil, args...)
	if err != nil {
		return nil, err
	}
	return handshake(transport, protocolVersion, opts)
}

// NewClientWithStreamableHTTP connects to an MCP server over streamable
// HTTP.
func NewClientWithStreamableHTTP(url string, opts ...ClientOption) (*Client, error) {
	return NewClientWithStreamableHTTPProtocol(url, mcp.LATEST_PROTOCOL_VERSION, opts...)
}

// NewClientWithStreamableHTTPProtocol is NewClientWithStreamableHTTP
// pinned to a specific protocol version.
func NewClientWithStreamableHTTPProtocol(url, protocolVersion string, opts ...ClientOption) (*Client, error) {
	transport, err := client.NewStreamableHttpClient(url)
	if err != nil {
		return nil, err
	}
	return handshake(transport, protocolVersion, opts)
}

// handshake starts the transport and negotiates the protocol version.
func handshake(c *client.Client, protocolVersion string, opts []ClientOption) (*Client, error) {
	if protocolVersion == "" {
		protocolVersion = mcp.LATEST_PROTOCOL_VERSION
	}
	if err := c.Start(context.Background()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()

	var init mcp.InitializeRequest
	init.Params.ProtocolVersion = protocolVersion
	init.Params.ClientInfo = mcp.Implementation{
		Name:    "ontoforge-client",
		Version: "0.1.0",
	}
	if _, err := c.Initialize(ctx, init); err != nil {
		c.Close()
		return nil, err
	}
	return NewClient(c, opts...), nil
}

// ListTools returns the tools the server advertises, from cache when the
// last listing is still fresh.
func (c *Client) ListTools(ctx context.Context) ([]mcp.Tool, error) {
	if tools, ok := c.toolsFromCache(); ok {
		return tools, nil
	}
	result, err := withRetry(ctx, c, func(ctx context.Context) (*mcp.ListToolsResult, error) {
		return c.inner.ListTools(ctx, mcp.ListToolsRequest{})
	})
	if err != nil {
		return nil, err
	}
	c.rememberTools(result.Tools)
	return result.Tools, nil
}

// CallTool invokes the named tool with the given arguments.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	return withRetry(ctx, c, func(ctx context.Context) (*mcp.CallToolResult, error) {
		return c.inner.CallTool(ctx, req)
	})
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.inner.Close()
}

func (c *Client) toolsFromCache() ([]mcp.Tool, bool) {
	if c.cacheTTL == 0 {
		return nil, false
	}
	c.toolsMu.Lock()
	defer c.toolsMu.Unlock()
	if c.tools == nil || time.Since(c.fetchedAt) >= c.cacheTTL {
		return nil, false
	}
	return slices.Clone(c.tools), true
}

func (c *Client) rememberTools(tools []mcp.Tool) {
	if c.cacheTTL == 0 {
		return
	}
	c.toolsMu.Lock()
	defer c.toolsMu.Unlock()
	c.tools = slices.Clone(tools)
	c.fetchedAt = time.Now()
}

// withRetry runs call under the per-call timeout and retries transport
// failures up to c.retries times, doubling the backoff each round. A
// canceled or deadline-expired context is surfaced immediately instead of
// being retried.
func withRetry[T any](ctx context.Context, c *Client, call func(context.Context) (T, error)) (T, error) {
	var zero T
	var last error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			if err := c.waitBackoff(ctx, attempt); err != nil {
				return zero, err
			}
		}
		callCtx, cancel := c.callContext(ctx)
		out, err := call(callCtx)
		cancel()
		if err == nil {
			return out, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		last = err
	}
	return zero, last
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// waitBackoff sleeps before retry number retry (1-based), honoring
// cancellation.
func (c *Client) waitBackoff(ctx context.Context, retry int) error {
	timer := time.NewTimer(c.backoff << (retry - 1))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
