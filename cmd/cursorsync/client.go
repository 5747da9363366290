package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/1broseidon/cursorsync/internal/config"
	"github.com/1broseidon/cursorsync/internal/cursor"
	"github.com/1broseidon/cursorsync/internal/daemon"
	"github.com/1broseidon/cursorsync/internal/ipc"
	"github.com/1broseidon/cursorsync/internal/snapshot"
)

func newClient(configPath string) (*ipc.Client, *config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	return ipc.NewClient(cfg.IPC.Socket), cfg, nil
}

func runStatus(args []string) int {
	fs := newFlagSet("status",
		"Usage: cursorsync status [--config PATH] [--json]",
		"",
		"Show daemon status via IPC.")
	configPath := fs.String("config", "", configPathHelp)
	asJSON := fs.Bool("json", false, "Print the raw status as JSON")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	client, _, err := newClient(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	status, err := client.GetStatus()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *asJSON {
		return printJSON(os.Stdout, status)
	}
	printStatus(os.Stdout, status)
	return 0
}

func printStatus(w io.Writer, status *ipc.StatusData) {
	fmt.Fprintf(w, "daemon_running: %v\n", status.DaemonRunning)
	fmt.Fprintf(w, "backend:        %s\n", status.Backend)
	fmt.Fprintf(w, "identity_mode:  %s\n", status.Mode)
	if status.HasIdentity {
		fmt.Fprintf(w, "identity:       %s\n", status.Identity)
	} else {
		fmt.Fprintln(w, "identity:       -")
	}
	if status.HasSeed {
		fmt.Fprintf(w, "seed:           %d\n", status.Seed)
	}
	fmt.Fprintf(w, "changes:        %d\n", status.Changes)
	if !status.LastChange.IsZero() {
		fmt.Fprintf(w, "last_change:    %s\n", status.LastChange.Format(time.RFC3339))
	}
	fmt.Fprintf(w, "cache:          %d hits, %d misses\n", status.CacheHits, status.CacheMisses)
	if status.LastError != "" {
		fmt.Fprintf(w, "last_error:     %s\n", status.LastError)
	}
	fmt.Fprintf(w, "uptime_seconds: %d\n", status.UptimeSeconds)
}

func runIdentity(args []string) int {
	fs := newFlagSet("identity",
		"Usage: cursorsync identity [--config PATH] [--direct]",
		"",
		"Print the identity of the displayed cursor.")
	configPath := fs.String("config", "", configPathHelp)
	direct := fs.Bool("direct", false, "Query the OS directly instead of the daemon")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	var id cursor.Identity
	if *direct {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		backend, err := openBackend(cfg)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer backend.Close()
		id, err = backend.CurrentIdentity()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return cursorExitCode(err)
		}
	} else {
		client, _, err := newClient(*configPath)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		id, err = client.GetIdentity()
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return cursorExitCode(err)
		}
	}
	fmt.Println(id)
	return 0
}

// extractRequest picks the cursor to extract: a specific identity when one is
// given, otherwise whatever is displayed.
type extractRequest struct {
	identity    cursor.Identity
	hasExplicit bool
	direct      bool
}

func parseIdentity(s string) (cursor.Identity, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid identity %q: must be an unsigned integer", s)
	}
	return cursor.Identity(v), nil
}

func fetchCursor(cfg *config.Config, req extractRequest) (cursor.Data, error) {
	if req.direct {
		backend, err := openBackend(cfg)
		if err != nil {
			return cursor.Data{}, err
		}
		defer backend.Close()
		expected := req.identity
		if !req.hasExplicit {
			expected, err = backend.CurrentIdentity()
			if err != nil {
				return cursor.Data{}, err
			}
		}
		return backend.Extract(expected)
	}

	client := ipc.NewClient(cfg.IPC.Socket)
	var data *cursor.Data
	var err error
	if req.hasExplicit {
		data, err = client.Extract(req.identity)
	} else {
		data, err = client.ExtractCurrent()
	}
	if err != nil {
		return cursor.Data{}, err
	}
	return *data, nil
}

func addExtractFlags(fs *pflag.FlagSet) (identity *string, direct *bool) {
	identity = fs.String("identity", "", "Extract only if the displayed cursor still has this identity")
	direct = fs.Bool("direct", false, "Query the OS directly instead of the daemon")
	return identity, direct
}

func buildExtractRequest(identity string, direct bool) (extractRequest, error) {
	req := extractRequest{direct: direct}
	if identity != "" {
		id, err := parseIdentity(identity)
		if err != nil {
			return req, err
		}
		req.identity = id
		req.hasExplicit = true
	}
	return req, nil
}

func runExtract(args []string) int {
	fs := newFlagSet("extract",
		"Usage: cursorsync extract [--config PATH] [--identity ID] [--direct]",
		"",
		"Print the displayed cursor bitmap as JSON. Pixels are base64 RGBA,",
		"row-major, top row first. Exits 3 when the cursor changed before it",
		"could be read and 4 when no cursor is available.")
	configPath := fs.String("config", "", configPathHelp)
	identity, direct := addExtractFlags(fs)
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	req, err := buildExtractRequest(*identity, *direct)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	data, err := fetchCursor(cfg, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return cursorExitCode(err)
	}
	return printJSON(os.Stdout, data)
}

func runSnapshot(args []string) int {
	fs := newFlagSet("snapshot",
		"Usage: cursorsync snapshot [--config PATH] [--format png|cbor] [--scale N] [-o FILE] [--from FILE]",
		"",
		"Write the displayed cursor as a PNG image or a CBOR record. With --from,",
		"convert a CBOR record written earlier instead of reading the cursor.")
	configPath := fs.String("config", "", configPathHelp)
	format := fs.String("format", "", "Output format: png or cbor (default: snapshot.format)")
	scale := fs.Float64("scale", 0, "PNG scale factor (default: snapshot.scale)")
	output := fs.StringP("output", "o", "", "Output file (default: stdout)")
	from := fs.String("from", "", "CBOR snapshot file to convert")
	identity, direct := addExtractFlags(fs)
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	req, err := buildExtractRequest(*identity, *direct)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *format != "" {
		cfg.Snapshot.Format = config.SnapshotFormat(*format)
	}
	if *scale != 0 {
		cfg.Snapshot.Scale = *scale
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *output == "" && cfg.Snapshot.Format == config.SnapshotPNG && term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "refusing to write PNG to a terminal; use -o FILE or redirect stdout")
		return 2
	}

	var data cursor.Data
	if *from != "" {
		data, err = readSnapshot(*from)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	} else {
		data, err = fetchCursor(cfg, req)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return cursorExitCode(err)
		}
	}

	var w io.Writer = os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
		defer f.Close()
		w = f
	}
	if err := snapshot.Write(w, data, cfg.Snapshot.Format, cfg.Snapshot.Scale); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if *output != "" {
		fmt.Fprintf(os.Stderr, "wrote %dx%d cursor %s to %s\n", data.Width, data.Height, data.Identity, *output)
	}
	return 0
}

func readSnapshot(path string) (cursor.Data, error) {
	f, err := os.Open(path)
	if err != nil {
		return cursor.Data{}, err
	}
	defer f.Close()
	return snapshot.DecodeCBOR(f)
}

func runReset(args []string) int {
	fs := newFlagSet("reset",
		"Usage: cursorsync reset [--config PATH]",
		"",
		"Clear the daemon's cursor state so the next poll re-detects the cursor.")
	configPath := fs.String("config", "", configPathHelp)
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	client, _, err := newClient(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if err := client.Reset(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("reset: ok")
	return 0
}

func runPosition(args []string) int {
	fs := newFlagSet("position",
		"Usage: cursorsync position [--config PATH]",
		"",
		"Print the pointer location in screen coordinates.")
	configPath := fs.String("config", "", configPathHelp)
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	client, _, err := newClient(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pos, err := client.GetPosition()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	if pos.Monitor != "" {
		fmt.Printf("%d %d %s\n", pos.X, pos.Y, pos.Monitor)
	} else {
		fmt.Printf("%d %d\n", pos.X, pos.Y)
	}
	return 0
}

func runWatch(args []string) int {
	fs := newFlagSet("watch",
		"Usage: cursorsync watch [--config PATH] [--json]",
		"",
		"Stream cursor identity changes until interrupted. Output is JSON lines",
		"when stdout is not a terminal.")
	configPath := fs.String("config", "", configPathHelp)
	asJSON := fs.Bool("json", false, "Force JSON lines output")
	if code := parseFlags(fs, args, 0); code >= 0 {
		return code
	}

	client, _, err := newClient(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	jsonLines := *asJSON || !term.IsTerminal(int(os.Stdout.Fd()))
	enc := json.NewEncoder(os.Stdout)
	err = client.Watch(ctx, func(ev daemon.Event) error {
		if jsonLines {
			return enc.Encode(ev)
		}
		_, err := fmt.Println(formatEvent(ev))
		return err
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func formatEvent(ev daemon.Event) string {
	return fmt.Sprintf("%s  identity=%s seed=%d", ev.At.Format("15:04:05.000"), ev.Identity, ev.Seed)
}

func printJSON(w io.Writer, v any) int {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// cursorExitCode distinguishes stale and unavailable failures so scripts can
// retry the former.
func cursorExitCode(err error) int {
	switch {
	case errors.Is(err, cursor.ErrStaleCursor):
		return 3
	case errors.Is(err, cursor.ErrUnavailable):
		return 4
	default:
		return 1
	}
}
