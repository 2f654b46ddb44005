package mcp

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/darkcube-team/cuby/internal/logger"
)

// readHeaderTimeout bounds how long an HTTP client may take to present
// its request headers.
const readHeaderTimeout = 10 * time.Second

// Server exposes the knowledge store to MCP clients as tools, over
// stdio or streamable HTTP.
type Server struct {
	ports *Ports
	inner *mcp.Server
}

// NewServer wires the tool handlers against the given ports. The
// version is reported to connecting clients during initialization.
func NewServer(ports *Ports, version string) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	s := &Server{
		ports: ports,
		inner: mcp.NewServer(&mcp.Implementation{Name: "cuby", Version: version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Serve blocks until the context is cancelled or the transport fails.
// An empty addr selects stdio, the transport MCP hosts use for spawned
// subprocesses; otherwise the server listens for HTTP clients on addr.
func (s *Server) Serve(ctx context.Context, addr string) error {
	if addr == "" {
		logger.Debug("MCP server on stdio")
		return s.inner.Run(ctx, &mcp.StdioTransport{})
	}

	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.inner
	}, nil)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background()) //nolint:errcheck
	}()

	logger.Info("MCP server listening on %s", addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}
