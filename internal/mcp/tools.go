package mcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/snapshot"
)

const maxToolScale = 8

func (s *Server) handleStatus(_ context.Context, _ *mcpsdk.CallToolRequest, _ StatusInput) (*mcpsdk.CallToolResult, StatusOutput, error) {
	st, err := s.daemon.GetStatus()
	if err != nil {
		return nil, StatusOutput{}, err
	}

	out := StatusOutput{
		Backend:       st.Backend,
		IdentityMode:  string(st.Mode),
		Changes:       st.Changes,
		LastError:     st.LastError,
		CacheHits:     st.CacheHits,
		CacheMisses:   st.CacheMisses,
		UptimeSeconds: st.UptimeSeconds,
	}
	if !st.LastChange.IsZero() {
		out.LastChange = st.LastChange.Format(time.RFC3339)
	}
	if st.HasIdentity {
		id := uint64(st.Identity)
		out.Identity = &id
	}
	// Not every platform can report the pointer; status still succeeds.
	if p, err := s.daemon.GetPosition(); err == nil {
		out.PointerX, out.PointerY = &p.X, &p.Y
		out.Monitor = p.Monitor
	}
	return nil, out, nil
}

func (s *Server) handleExtract(_ context.Context, _ *mcpsdk.CallToolRequest, args ExtractInput) (*mcpsdk.CallToolResult, ExtractOutput, error) {
	scale := args.Scale
	if scale == 0 && s.config != nil {
		scale = s.config.Snapshot.Scale
	}
	if scale < 0 || scale > maxToolScale {
		return nil, ExtractOutput{}, fmt.Errorf("scale must be > 0 and <= %d", maxToolScale)
	}

	var (
		data *cursor.Data
		err  error
	)
	if args.Identity != nil {
		data, err = s.daemon.Extract(cursor.Identity(*args.Identity))
	} else {
		data, err = s.daemon.ExtractCurrent()
	}
	if err != nil {
		if errors.Is(err, cursor.ErrStaleCursor) {
			return nil, ExtractOutput{}, fmt.Errorf("%w; call cursor_status for the new identity", err)
		}
		return nil, ExtractOutput{}, err
	}

	var buf bytes.Buffer
	if err := snapshot.EncodePNG(&buf, *data, scale); err != nil {
		return nil, ExtractOutput{}, err
	}

	out := ExtractOutput{
		Identity: uint64(data.Identity),
		Width:    data.Width,
		Height:   data.Height,
		HotspotX: data.HotspotX,
		HotspotY: data.HotspotY,
		PNGBytes: buf.Len(),
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.ImageContent{Data: buf.Bytes(), MIMEType: "image/png"},
			&mcpsdk.TextContent{Text: fmt.Sprintf("cursor %d: %dx%d, hotspot (%d,%d)", out.Identity, out.Width, out.Height, out.HotspotX, out.HotspotY)},
		},
	}, out, nil
}

func (s *Server) handleReset(_ context.Context, _ *mcpsdk.CallToolRequest, _ ResetInput) (*mcpsdk.CallToolResult, any, error) {
	if err := s.daemon.Reset(); err != nil {
		return nil, nil, err
	}
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: "Cursor state reset; the next poll will report a change."},
		},
	}, nil, nil
}
