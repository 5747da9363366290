package mcp

import (
	"context"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/cursorsync/internal/config"
	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/ipc"
)

const (
	ServerName    = "cursorsync"
	ServerVersion = "0.1.0"
)

// Daemon is the IPC surface the tools call. *ipc.Client implements it.
type Daemon interface {
	GetStatus() (*ipc.StatusData, error)
	GetIdentity() (cursor.Identity, error)
	Extract(identity cursor.Identity) (*cursor.Data, error)
	ExtractCurrent() (*cursor.Data, error)
	Reset() error
	GetPosition() (*ipc.PositionData, error)
}

var _ Daemon = (*ipc.Client)(nil)

// Server is the MCP server exposing the cursor daemon.
type Server struct {
	mcpServer *mcpsdk.Server
	config    *config.Config
	daemon    Daemon
}

// NewServer creates a new MCP server that forwards to the daemon over IPC.
func NewServer(cfg *config.Config) *Server {
	return newServer(cfg, ipc.NewClient(cfg.IPC.Socket))
}

func newServer(cfg *config.Config, d Daemon) *Server {
	s := &Server{
		config: cfg,
		daemon: d,
	}

	s.mcpServer = mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    ServerName,
			Version: ServerVersion,
		},
		nil,
	)

	s.registerTools()
	return s
}

// Run starts the MCP server on stdio transport, blocking until done.
func (s *Server) Run(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcpsdk.StdioTransport{})
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cursor_status",
		Description: "Report what the cursorsync daemon has observed: the identity of the displayed cursor, how many shape changes it has seen, the identity mode, bitmap cache statistics, and the pointer position when the platform supports it.",
	}, s.handleStatus)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cursor_extract",
		Description: "Return the displayed cursor as a PNG image plus its identity, size and hotspot. Pass identity to only accept that exact cursor; the call fails with a stale error if the cursor has changed since, and the caller should re-read cursor_status instead of retrying the old identity.",
	}, s.handleExtract)

	mcpsdk.AddTool(s.mcpServer, &mcpsdk.Tool{
		Name:        "cursor_reset",
		Description: "Make the daemon forget the last seen cursor so the next poll reports a change and re-fingerprints, and drop cached bitmaps.",
	}, s.handleReset)
}
