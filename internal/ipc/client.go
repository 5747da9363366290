package ipc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/daemon"
	"github.com/1broseidon/cursorsync/internal/runtimepath"
)

// Client handles IPC communication with the daemon
type Client struct {
	socketPath string
	timeout    time.Duration
}

// NewClient creates a new IPC client. socketOverride is the ipc.socket config
// value; empty uses the runtime directory.
func NewClient(socketOverride string) *Client {
	socketPath, err := runtimepath.SocketPath(socketOverride)
	if err != nil {
		// Keep constructor non-failing; sendRequest surfaces connection errors.
		socketPath = ""
	}

	return &Client{
		socketPath: socketPath,
		timeout:    5 * time.Second,
	}
}

func (c *Client) dial() (net.Conn, error) {
	conn, err := net.DialTimeout("unix", c.socketPath, c.timeout)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to daemon: %w (is the daemon running?)", err)
	}
	return conn, nil
}

// sendRequest sends a request and waits for a response
func (c *Client) sendRequest(req *Request) (*Response, error) {
	conn, err := c.dial()
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))

	if err := writeLine(conn, req); err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	return readResponse(bufio.NewReader(conn))
}

func readResponse(reader *bufio.Reader) (*Response, error) {
	respData, err := reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// Check for error response
	if resp.Status == "ERROR" {
		return nil, &RemoteError{Message: resp.Error, Kind: resp.ErrorKind}
	}

	return &resp, nil
}

// GetStatus retrieves daemon status
func (c *Client) GetStatus() (*StatusData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetStatus})
	if err != nil {
		return nil, err
	}

	var status StatusData
	if err := json.Unmarshal(resp.Data, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status data: %w", err)
	}

	return &status, nil
}

// GetIdentity asks the daemon to fingerprint the displayed cursor.
func (c *Client) GetIdentity() (cursor.Identity, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetIdentity})
	if err != nil {
		return 0, err
	}

	var data IdentityData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return 0, fmt.Errorf("failed to parse identity data: %w", err)
	}
	return data.Identity, nil
}

// Extract fetches the bitmap for identity. The error matches
// cursor.ErrStaleCursor if the cursor has changed since identity was observed.
func (c *Client) Extract(identity cursor.Identity) (*cursor.Data, error) {
	return c.extract(ExtractPayload{Identity: identity})
}

// ExtractCurrent fetches the bitmap of whatever cursor is displayed.
func (c *Client) ExtractCurrent() (*cursor.Data, error) {
	return c.extract(ExtractPayload{Current: true})
}

func (c *Client) extract(p ExtractPayload) (*cursor.Data, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal extract payload: %w", err)
	}

	resp, err := c.sendRequest(&Request{
		Command: CommandExtract,
		Payload: payload,
	})
	if err != nil {
		return nil, err
	}

	var data cursor.Data
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse cursor data: %w", err)
	}
	return &data, nil
}

// Reset forces the daemon to re-detect the cursor on its next tick.
func (c *Client) Reset() error {
	_, err := c.sendRequest(&Request{Command: CommandReset})
	return err
}

// GetPosition retrieves the pointer location.
func (c *Client) GetPosition() (*PositionData, error) {
	resp, err := c.sendRequest(&Request{Command: CommandGetPosition})
	if err != nil {
		return nil, err
	}

	var data PositionData
	if err := json.Unmarshal(resp.Data, &data); err != nil {
		return nil, fmt.Errorf("failed to parse position data: %w", err)
	}
	return &data, nil
}

// Watch streams identity changes to fn until ctx is cancelled, fn returns an
// error, or the daemon goes away. Cancellation returns nil.
func (c *Client) Watch(ctx context.Context, fn func(daemon.Event) error) error {
	conn, err := c.dial()
	if err != nil {
		return err
	}
	defer conn.Close()

	conn.SetDeadline(time.Now().Add(c.timeout))
	if err := writeLine(conn, &Request{Command: CommandWatch}); err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	reader := bufio.NewReader(conn)
	if _, err := readResponse(reader); err != nil {
		return err
	}
	conn.SetDeadline(time.Time{})

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		line, err := reader.ReadBytes('\n')
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("watch stream ended: %w", err)
		}
		var ev daemon.Event
		if err := json.Unmarshal(line, &ev); err != nil {
			return fmt.Errorf("failed to parse event: %w", err)
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
}

// Ping checks if the daemon is responding
func (c *Client) Ping() error {
	_, err := c.GetStatus()
	return err
}
