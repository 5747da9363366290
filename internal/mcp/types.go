package mcp

// StatusInput is the input for the cursor_status tool.
type StatusInput struct{}

// StatusOutput is the output for the cursor_status tool.
type StatusOutput struct {
	Backend       string  `json:"backend"`
	IdentityMode  string  `json:"identity_mode"`
	Identity      *uint64 `json:"identity,omitempty"`
	Changes       uint64  `json:"changes"`
	LastChange    string  `json:"last_change,omitempty"` // RFC 3339
	LastError     string  `json:"last_error,omitempty"`
	CacheHits     uint64  `json:"cache_hits"`
	CacheMisses   uint64  `json:"cache_misses"`
	UptimeSeconds int64   `json:"uptime_seconds"`
	PointerX      *int    `json:"pointer_x,omitempty"`
	PointerY      *int    `json:"pointer_y,omitempty"`
	Monitor       string  `json:"monitor,omitempty"`
}

// ExtractInput is the input for the cursor_extract tool.
type ExtractInput struct {
	Identity *uint64 `json:"identity,omitempty" jsonschema:"Identity from cursor_status to verify against. Omit to extract whatever cursor is displayed."`
	Scale    float64 `json:"scale,omitempty" jsonschema:"Resize factor for the returned PNG (default: snapshot.scale from config)"`
}

// ExtractOutput is the output for the cursor_extract tool.
type ExtractOutput struct {
	Identity uint64 `json:"identity"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	HotspotX int    `json:"hotspot_x"`
	HotspotY int    `json:"hotspot_y"`
	PNGBytes int    `json:"png_bytes"`
}

// ResetInput is the input for the cursor_reset tool.
type ResetInput struct{}
