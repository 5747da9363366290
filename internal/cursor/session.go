package cursor

// Session tracks the cursor of one capture session. It owns its
// ChangeDetector, so independent sessions never share seed state.
//
// A Session is driven by a single capture loop; PollChanged and Reset are
// not meant to be called from several goroutines at once.
type Session struct {
	src      Source
	mode     IdentityMode
	detector *ChangeDetector
}

var _ Tracker = (*Session)(nil)

// NewSession creates a Session reading from src.
func NewSession(src Source, mode IdentityMode) *Session {
	if mode == "" {
		mode = IdentitySampled
	}
	return &Session{
		src:      src,
		mode:     mode,
		detector: NewChangeDetector(),
	}
}

// Mode returns the identity mode the session fingerprints with.
func (s *Session) Mode() IdentityMode {
	return s.mode
}

// PollChanged reads the OS seed and reports whether it moved.
func (s *Session) PollChanged() bool {
	return s.detector.PollChanged(s.src.Seed())
}

// Reset forces the next PollChanged to report a change.
func (s *Session) Reset() {
	s.detector.Reset()
}

// CurrentSeed reads the OS generation counter without touching the
// detector, so the next PollChanged still sees any change.
func (s *Session) CurrentSeed() int32 {
	return s.src.Seed()
}

// LastSeed exposes the detector state for status reporting.
func (s *Session) LastSeed() (int32, bool) {
	return s.detector.LastSeed()
}

func (s *Session) Fingerprint(h Handle) (Handle, Identity, error) {
	return FingerprintWith(s.mode, h)
}

func (s *Session) CurrentIdentity() (Identity, error) {
	h, err := s.src.Current()
	if err != nil {
		return 0, err
	}
	_, id, err := s.Fingerprint(h)
	return id, err
}

func (s *Session) Extract(expected Identity) (Data, error) {
	return Extract(s.src, s.mode, expected)
}

func (s *Session) ExtractCurrent() (Data, error) {
	return ExtractCurrent(s.src, s.mode)
}
