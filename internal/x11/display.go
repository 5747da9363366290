package x11

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// DisplayEnv is the X server address and auth file a connection should use.
type DisplayEnv struct {
	Display    string
	XAuthority string
}

func (d DisplayEnv) complete() bool {
	return d.Display != "" && d.XAuthority != ""
}

// fill copies the non-empty fields of from into the empty fields of d.
func (d *DisplayEnv) fill(from DisplayEnv) {
	if d.Display == "" {
		d.Display = strings.TrimSpace(from.Display)
	}
	if d.XAuthority == "" {
		d.XAuthority = strings.TrimSpace(from.XAuthority)
	}
}

// ResolveDisplay picks DISPLAY/XAUTHORITY for a daemon that may have been
// started outside the graphical session (systemd user units, ssh). Values in
// env win, then the configured ones, then the logind session, then the
// highest-numbered socket in /tmp/.X11-unix.
func ResolveDisplay(env []string, configured DisplayEnv) (DisplayEnv, error) {
	return newDisplayProbe(env).resolve(configured)
}

// displayProbe holds the OS lookups ResolveDisplay depends on.
type displayProbe struct {
	env       []string
	uid       int
	socketDir string
	run       func(name string, args ...string) ([]byte, error)
	readFile  func(name string) ([]byte, error)
	stat      func(name string) (os.FileInfo, error)
}

func newDisplayProbe(env []string) *displayProbe {
	return &displayProbe{
		env:       env,
		uid:       os.Getuid(),
		socketDir: "/tmp/.X11-unix",
		run: func(name string, args ...string) ([]byte, error) {
			return exec.Command(name, args...).Output()
		},
		readFile: os.ReadFile,
		stat:     os.Stat,
	}
}

func (p *displayProbe) resolve(configured DisplayEnv) (DisplayEnv, error) {
	var got DisplayEnv
	got.fill(DisplayEnv{Display: p.getenv("DISPLAY"), XAuthority: p.getenv("XAUTHORITY")})
	got.fill(configured)
	if !got.complete() {
		got.fill(p.session())
	}
	if got.Display == "" {
		got.Display = p.socketDisplay()
	}
	if got.Display == "" {
		return DisplayEnv{}, fmt.Errorf("no X display found; set display in config (e.g. display: \":1\") or export DISPLAY")
	}
	if got.XAuthority == "" {
		got.XAuthority = p.homeXAuthority()
	}
	return got, nil
}

func (p *displayProbe) getenv(key string) string {
	prefix := key + "="
	for _, kv := range p.env {
		if v, ok := strings.CutPrefix(kv, prefix); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// session asks logind for the caller's first graphical session. The session
// leader's environment is preferred over logind's Display property because
// it also carries XAUTHORITY.
func (p *displayProbe) session() DisplayEnv {
	out, err := p.run("loginctl", "list-sessions", "--no-legend")
	if err != nil {
		return DisplayEnv{}
	}
	for _, id := range sessionsForUID(string(out), strconv.Itoa(p.uid)) {
		display := p.sessionProp(id, "Display")
		if display == "" || strings.EqualFold(display, "n/a") {
			continue
		}
		found := DisplayEnv{Display: display}
		if leader := p.sessionProp(id, "Leader"); leader != "" && leader != "0" {
			leaderEnv := p.procEnv(leader)
			found = DisplayEnv{}
			found.fill(DisplayEnv{Display: leaderEnv["DISPLAY"], XAuthority: leaderEnv["XAUTHORITY"]})
			found.fill(DisplayEnv{Display: display})
		}
		return found
	}
	return DisplayEnv{}
}

func (p *displayProbe) sessionProp(id, prop string) string {
	out, err := p.run("loginctl", "show-session", id, "-p", prop, "--value")
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

func (p *displayProbe) procEnv(pid string) map[string]string {
	data, err := p.readFile(filepath.Join("/proc", pid, "environ"))
	if err != nil {
		return nil
	}
	env := make(map[string]string)
	for _, kv := range bytes.Split(data, []byte{0}) {
		if k, v, ok := strings.Cut(string(kv), "="); ok && k != "" {
			env[k] = v
		}
	}
	return env
}

// socketDisplay returns the highest-numbered display with a socket in
// socketDir, or "".
func (p *displayProbe) socketDisplay() string {
	matches, _ := filepath.Glob(filepath.Join(p.socketDir, "X*"))
	best := -1
	for _, m := range matches {
		n, err := strconv.Atoi(strings.TrimPrefix(filepath.Base(m), "X"))
		if err == nil && n > best {
			best = n
		}
	}
	if best < 0 {
		return ""
	}
	return ":" + strconv.Itoa(best)
}

func (p *displayProbe) homeXAuthority() string {
	home := p.getenv("HOME")
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	if home == "" {
		return ""
	}
	candidate := filepath.Join(home, ".Xauthority")
	if _, err := p.stat(candidate); err != nil {
		return ""
	}
	return candidate
}

// sessionsForUID picks the session IDs owned by uid from
// `loginctl list-sessions --no-legend` output.
func sessionsForUID(output, uid string) []string {
	var ids []string
	for _, line := range strings.Split(output, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 && fields[1] == uid {
			ids = append(ids, fields[0])
		}
	}
	return ids
}
