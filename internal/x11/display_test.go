package x11

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// fakeProbe returns a probe with no logind, no sockets and no /proc.
func fakeProbe(t *testing.T, env ...string) *displayProbe {
	t.Helper()
	p := newDisplayProbe(env)
	p.uid = 1000
	p.socketDir = t.TempDir()
	p.run = func(string, ...string) ([]byte, error) { return nil, errors.New("no loginctl") }
	p.readFile = func(string) ([]byte, error) { return nil, os.ErrNotExist }
	return p
}

// withSession makes loginctl report one session for uid 1000 with the
// given Display and Leader properties.
func withSession(p *displayProbe, display, leader string) {
	p.run = func(name string, args ...string) ([]byte, error) {
		if args[0] == "list-sessions" {
			return []byte("7 1000 user seat0\n2 1001 other seat0\n"), nil
		}
		switch args[len(args)-2] {
		case "Display":
			return []byte(display + "\n"), nil
		case "Leader":
			return []byte(leader + "\n"), nil
		}
		return nil, errors.New("unexpected")
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, nil, 0600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestResolveDisplay_Precedence(t *testing.T) {
	tests := []struct {
		name       string
		env        []string
		configured DisplayEnv
		session    [2]string // Display, Leader
		leaderEnv  string
		sockets    []string
		want       DisplayEnv
	}{
		{
			name:       "environment wins",
			env:        []string{"DISPLAY=:7", "XAUTHORITY=/tmp/xauth-env"},
			configured: DisplayEnv{Display: ":1", XAuthority: "/tmp/cfg"},
			session:    [2]string{":9", "0"},
			want:       DisplayEnv{Display: ":7", XAuthority: "/tmp/xauth-env"},
		},
		{
			name:       "config fills gaps",
			env:        []string{"DISPLAY=:7"},
			configured: DisplayEnv{Display: ":1", XAuthority: "/tmp/cfg"},
			want:       DisplayEnv{Display: ":7", XAuthority: "/tmp/cfg"},
		},
		{
			name:      "session leader environment",
			session:   [2]string{":0", "4242"},
			leaderEnv: "DISPLAY=:1\x00XAUTHORITY=/run/user/1000/xauth\x00",
			want:      DisplayEnv{Display: ":1", XAuthority: "/run/user/1000/xauth"},
		},
		{
			name:    "session display without leader",
			session: [2]string{":2", "0"},
			want:    DisplayEnv{Display: ":2"},
		},
		{
			name:    "sockets pick highest display",
			session: [2]string{"n/a", "0"},
			sockets: []string{"X0", "X3", "X10", "not-a-display"},
			want:    DisplayEnv{Display: ":10"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := fakeProbe(t, append(tt.env, "HOME="+t.TempDir())...)
			if tt.session[0] != "" {
				withSession(p, tt.session[0], tt.session[1])
			}
			if tt.leaderEnv != "" {
				p.readFile = func(path string) ([]byte, error) {
					if path != filepath.Join("/proc", "4242", "environ") {
						return nil, os.ErrNotExist
					}
					return []byte(tt.leaderEnv), nil
				}
			}
			for _, s := range tt.sockets {
				touch(t, filepath.Join(p.socketDir, s))
			}

			got, err := p.resolve(tt.configured)
			if err != nil {
				t.Fatalf("resolve: %v", err)
			}
			if got != tt.want {
				t.Fatalf("resolve = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestResolveDisplay_HomeXAuthorityFallback(t *testing.T) {
	home := t.TempDir()
	xauth := filepath.Join(home, ".Xauthority")
	touch(t, xauth)

	p := fakeProbe(t, "HOME="+home)
	got, err := p.resolve(DisplayEnv{Display: ":1"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.Display != ":1" || got.XAuthority != xauth {
		t.Fatalf("resolve = %+v, want :1 with %s", got, xauth)
	}
}

func TestResolveDisplay_ErrorsWhenDisplayUnavailable(t *testing.T) {
	p := fakeProbe(t, "HOME="+t.TempDir())
	_, err := p.resolve(DisplayEnv{})
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "no X display found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSessionsForUID(t *testing.T) {
	out := strings.Join([]string{
		"1 1000 george seat0",
		"2 1001 alice seat0",
		"  3 1000 george seat1",
		"",
	}, "\n")
	got := sessionsForUID(out, "1000")
	if len(got) != 2 || got[0] != "1" || got[1] != "3" {
		t.Fatalf("sessionsForUID = %v, want [1 3]", got)
	}
}
