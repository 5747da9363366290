package ipc

import (
	"encoding/json"
	"fmt"

	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/daemon"
)

// CommandType represents different IPC command types
type CommandType string

const (
	CommandGetStatus   CommandType = "GET_STATUS"
	CommandGetIdentity CommandType = "GET_IDENTITY"
	CommandExtract     CommandType = "EXTRACT"
	CommandReset       CommandType = "RESET"
	CommandGetPosition CommandType = "GET_POSITION"
	// CommandWatch keeps the connection open and streams one Event per line
	// after the initial OK response.
	CommandWatch CommandType = "WATCH"
)

// Request represents an IPC request from client to server
type Request struct {
	Command CommandType     `json:"command"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response represents an IPC response from server to client
type Response struct {
	Status    string          `json:"status"` // "OK" or "ERROR"
	Data      json.RawMessage `json:"data,omitempty"`
	Error     string          `json:"error,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"` // "unavailable" or "stale"
}

// StatusData represents the data returned by GET_STATUS
type StatusData struct {
	daemon.Status
	UptimeSeconds int64 `json:"uptime_seconds"`
	DaemonRunning bool  `json:"daemon_running"`
}

// IdentityData represents the data returned by GET_IDENTITY
type IdentityData struct {
	Identity cursor.Identity `json:"identity"`
}

// ExtractPayload represents the payload for EXTRACT. With Current set the
// daemon fingerprints the displayed cursor itself and Identity is ignored.
type ExtractPayload struct {
	Identity cursor.Identity `json:"identity"`
	Current  bool            `json:"current,omitempty"`
}

// PositionData represents the data returned by GET_POSITION
type PositionData struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Monitor string `json:"monitor,omitempty"`
}

// NewOKResponse creates a successful response with optional data
func NewOKResponse(data interface{}) (*Response, error) {
	var dataBytes json.RawMessage
	if data != nil {
		bytes, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response data: %w", err)
		}
		dataBytes = bytes
	}

	return &Response{
		Status: "OK",
		Data:   dataBytes,
	}, nil
}

// NewErrorResponse creates an error response with a message
func NewErrorResponse(errMsg string) *Response {
	return &Response{
		Status: "ERROR",
		Error:  errMsg,
	}
}

// NewCursorErrorResponse creates an error response classified by cursor.Kind.
func NewCursorErrorResponse(prefix string, err error) *Response {
	resp := NewErrorResponse(fmt.Sprintf("%s: %v", prefix, err))
	resp.ErrorKind = cursor.Kind(err)
	return resp
}

// ParseRequest parses a request from JSON bytes
func ParseRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("failed to parse request: %w", err)
	}
	return &req, nil
}

// Marshal converts a response to JSON bytes
func (r *Response) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// RemoteError is a daemon-side failure returned to the client. It matches
// cursor.ErrUnavailable or cursor.ErrStaleCursor under errors.Is when the
// daemon classified it.
type RemoteError struct {
	Message string
	Kind    string
}

func (e *RemoteError) Error() string {
	return "daemon error: " + e.Message
}

func (e *RemoteError) Is(target error) bool {
	switch e.Kind {
	case "unavailable":
		return target == cursor.ErrUnavailable
	case "stale":
		return target == cursor.ErrStaleCursor
	}
	return false
}
