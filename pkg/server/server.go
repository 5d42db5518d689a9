// Package server wires the configuration, the connection manager, the
// energy toolbox and the MCP transport into a runnable stdio service.
package server

import (
	"context"
	"errors"
	"io"

	"github.com/rs/zerolog"

	"github.com/germanamz/tibber-mcp/pkg/conn"
	"github.com/germanamz/tibber-mcp/pkg/energytoolbox"
	"github.com/germanamz/tibber-mcp/pkg/tibber"
	"github.com/germanamz/tibber-mcp/pkg/tools/mcpserver"
)

// Name and Version identify the MCP implementation to clients.
const (
	Name    = "tibber-mcp"
	Version = "0.1.0"
)

// Server is the assembled service.
type Server struct {
	cfg     Config
	log     zerolog.Logger
	manager *conn.Manager
}

// New creates a Server from a validated configuration.
func New(cfg Config, log zerolog.Logger) *Server {
	s := &Server{cfg: cfg, log: log}
	s.manager = conn.NewManager(s.dial)

	return s
}

// dial builds and initializes the upstream client. The initial metadata
// refresh runs here so Acquire only ever hands out ready clients.
func (s *Server) dial(ctx context.Context) (*tibber.Client, error) {
	client := tibber.New(s.cfg.Token,
		tibber.WithUserAgent(s.cfg.UserAgent),
		tibber.WithTimeout(s.cfg.RequestTimeout),
		tibber.WithLogger(s.log),
	)

	if err := client.UpdateInfo(ctx); err != nil {
		client.Close()

		return nil, err
	}

	s.log.Info().
		Str("viewer", client.Name()).
		Int("homes", len(client.Homes())).
		Msg("connected to Tibber")

	return client, nil
}

func (s *Server) acquireUpstream(ctx context.Context) (energytoolbox.Upstream, error) {
	client, err := s.manager.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	return energytoolbox.FromClient(client), nil
}

// Run serves MCP requests from in to out until ctx is cancelled. The
// upstream connection is released on the way out.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	defer s.manager.Release()

	tools := energytoolbox.New(s.acquireUpstream,
		energytoolbox.WithRealtimeTimeout(s.cfg.RealtimeTimeout),
		energytoolbox.WithLogger(s.log),
	)

	srv := mcpserver.New(Name, Version, s.log)
	srv.Register(tools.Tools())

	s.log.Info().Str("version", Version).Msg("serving MCP on stdio")

	err := srv.Serve(ctx, in, out)
	if errors.Is(err, context.Canceled) {
		return nil
	}

	return err
}
