// Copyright 2026 © The OntoForge Authors
// SPDX-License-Identifier: Apache-2.0

package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/ontoforge/ontoforge/pkg/capability"
	"github.com/ontoforge/ontoforge/pkg/config"
	"github.com/ontoforge/ontoforge/pkg/errors"
)

// ServerSpec describes one external MCP server to mount.
type ServerSpec struct {
	// Transport selects the connection: "stdio" or "http". Empty infers
	// http when URL is set, stdio otherwise.
	Transport string
	// URL is the streamable HTTP endpoint.
	URL string
	// Command and Args launch a stdio server subprocess.
	Command string
	Args    []string

	// ProtocolVersion pins the MCP handshake; empty uses the latest.
	ProtocolVersion string
	// Options tune the client wrapper (timeout, retry, cache).
	Options []ClientOption
}

// Servers owns the client connections behind mounted external tools. Close
// it when the session ends; the mounted capabilities go stale after that.
type Servers struct {
	clients map[string]*Client
	logger  *slog.Logger
}

// SpecsFromConfig converts the mcp.servers config section into specs,
// translating the optional tuning fields into client options.
func SpecsFromConfig(servers map[string]config.MCPServerConfig) map[string]ServerSpec {
	if len(servers) == 0 {
		return nil
	}
	specs := make(map[string]ServerSpec, len(servers))
	for name, srv := range servers {
		var opts []ClientOption
		if srv.TimeoutSeconds != nil {
			opts = append(opts, WithTimeout(time.Duration(*srv.TimeoutSeconds)*time.Second))
		}
		if srv.RetryCount != nil || srv.RetryBackoffMs != nil {
			retries := 0
			backoff := 0 * time.Millisecond
			if srv.RetryCount != nil {
				retries = *srv.RetryCount
			}
			if srv.RetryBackoffMs != nil {
				backoff = time.Duration(*srv.RetryBackoffMs) * time.Millisecond
			}
			opts = append(opts, WithRetry(retries, backoff))
		}
		if srv.CacheTTLSeconds != nil {
			opts = append(opts, WithToolCacheTTL(time.Duration(*srv.CacheTTLSeconds)*time.Second))
		}
		specs[name] = ServerSpec{
			Transport:       srv.Transport,
			URL:             srv.URL,
			Command:         srv.Command,
			Args:            srv.Args,
			ProtocolVersion: srv.ProtocolVersion,
			Options:         opts,
		}
	}
	return specs
}

// MountServers connects to every spec and mounts its tools into the
// registry under the server's name as prefix. Any server that fails to
// connect or mount fails the whole call and closes what was already open;
// a session must not silently run without tools it was configured to have.
func MountServers(ctx context.Context, registry *capability.Registry, specs map[string]ServerSpec, logger *slog.Logger) (*Servers, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Servers{clients: make(map[string]*Client), logger: logger}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		cli, err := Connect(specs[name])
		if err != nil {
			s.Close()
			return nil, errors.New(errors.CodeMCP,
				fmt.Sprintf("connect mcp server %q", name), err)
		}
		mounted, err := Mount(ctx, registry, name, cli)
		if err != nil {
			cli.Close()
			s.Close()
			return nil, err
		}
		s.clients[name] = cli
		logger.Info("mcp server mounted",
			slog.String("server", name),
			slog.Int("tools", len(mounted)),
		)
	}
	return s, nil
}

// Connect opens a client for the spec without mounting anything.
func Connect(spec ServerSpec) (*Client, error) {
	transport := spec.Transport
	if transport == "" {
		if spec.URL != "" {
			transport = "http"
		} else {
			transport = "stdio"
		}
	}
	switch transport {
	case "http":
		if spec.URL == "" {
			return nil, fmt.Errorf("http transport requires a url")
		}
		return NewClientWithStreamableHTTPProtocol(spec.URL, spec.ProtocolVersion, spec.Options...)
	case "stdio":
		if spec.Command == "" {
			return nil, fmt.Errorf("stdio transport requires a command")
		}
		return NewClientWithStdioProtocol(spec.Command, spec.Args, spec.ProtocolVersion, spec.Options...)
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

// Len reports how many servers are connected.
func (s *Servers) Len() int { return len(s.clients) }

// Close closes every client connection.
func (s *Servers) Close() {
	for name, cli := range s.clients {
		if err := cli.Close(); err != nil {
			s.logger.Warn("close mcp client",
				slog.String("server", name),
				slog.String("error", err.Error()),
			)
		}
	}
	s.clients = make(map[string]*Client)
}
