// Package mcpserver serves a toolbox over the MCP protocol using the
// official MCP Go SDK. Handler errors become IsError text results, never
// protocol faults: a tool call always yields a well-formed response.
package mcpserver

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"github.com/germanamz/tibber-mcp/pkg/tools/toolbox"
)

// Server serves tools over MCP.
type Server struct {
	server *mcp.Server
	log    zerolog.Logger
}

// New creates a Server with the given implementation name and version.
func New(name, version string, log zerolog.Logger) *Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    name,
		Version: version,
	}, nil)

	return &Server{server: server, log: log}
}

// Register adds all tools from the box to the server.
func (s *Server) Register(box *toolbox.Box) {
	for _, t := range box.Tools() {
		s.server.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.InputSchema,
		}, s.wrap(t.Name, t.Handler))
	}
}

// Serve reads MCP requests from in and writes responses to out, blocking
// until ctx is cancelled or the transport closes. Nothing else may write
// to out while serving: the framing owns the stream.
func (s *Server) Serve(ctx context.Context, in io.Reader, out io.Writer) error {
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(in),
		Writer: nopWriteCloser{out},
	}

	return s.run(ctx, transport)
}

// run starts the server on the given transport. Tests call it directly
// with in-memory transports.
func (s *Server) run(ctx context.Context, transport mcp.Transport) error {
	return s.server.Run(ctx, transport)
}

// wrap adapts a toolbox handler to the SDK, logging each call.
func (s *Server) wrap(name string, h toolbox.Handler) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.Params.Arguments
		if args == nil {
			args = json.RawMessage("{}")
		}

		start := time.Now()
		result, err := h(ctx, args)
		s.log.Debug().
			Str("tool", name).
			Dur("elapsed", time.Since(start)).
			Bool("error", err != nil).
			Msg("tool call")

		if err != nil {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
				IsError: true,
			}, nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: result}},
		}, nil
	}
}

// nopWriteCloser wraps an io.Writer as an io.WriteCloser with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
