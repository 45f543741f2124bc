package session

import (
	"context"
	"errors"
	"sync"
)

// MIMETypeHLS is the content type probed for native HLS playback support.
const MIMETypeHLS = "application/vnd.apple.mpegurl"

// ErrAutoplayBlocked is returned by a Surface when its playback policy
// rejects an unattended play attempt. The manager surfaces it as a non-fatal
// error without leaving the current phase.
var ErrAutoplayBlocked = errors.New("auto-play blocked")

// Surface is an opaque playback sink. The session manager attaches its
// decoder to a Surface but never owns the Surface's lifecycle.
//
// Surfaces come in two capability flavors: MSE-style sinks that accept a
// decoded stream (Attach/Detach), and native sinks that take the manifest URL
// directly (SetSource, returning once metadata is available).
type Surface interface {
	SupportsMSE() bool
	CanPlayNatively(mimeType string) bool
	Attach() error
	Detach()
	SetSource(ctx context.Context, url string) error
	Play(ctx context.Context) error
	Pause()
	SetMuted(muted bool)
}

// SinkSurface is a headless Surface used by the server process and in tests.
// By default it behaves like an MSE-capable sink that accepts any stream.
type SinkSurface struct {
	mu        sync.Mutex
	mse       bool
	native    bool
	attached  bool
	sourceURL string
	playing   bool
	muted     bool
	playErr   error
}

// NewSinkSurface returns an MSE-capable sink with native playback disabled.
func NewSinkSurface() *SinkSurface {
	return &SinkSurface{mse: true}
}

// SetCapabilities reconfigures which playback paths the sink advertises.
func (s *SinkSurface) SetCapabilities(mse, native bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mse = mse
	s.native = native
}

// SetPlayError injects an error to be returned by the next Play calls,
// e.g. ErrAutoplayBlocked to simulate an auto-play policy.
func (s *SinkSurface) SetPlayError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playErr = err
}

func (s *SinkSurface) SupportsMSE() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mse
}

func (s *SinkSurface) CanPlayNatively(mimeType string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.native && mimeType == MIMETypeHLS
}

func (s *SinkSurface) Attach() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = true
	return nil
}

func (s *SinkSurface) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attached = false
	s.sourceURL = ""
	s.playing = false
}

func (s *SinkSurface) SetSource(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sourceURL = url
	return nil
}

func (s *SinkSurface) Play(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.playErr != nil {
		return s.playErr
	}
	s.playing = true
	return nil
}

func (s *SinkSurface) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playing = false
}

func (s *SinkSurface) SetMuted(muted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.muted = muted
}

// Attached reports whether a session is currently bound to the sink.
func (s *SinkSurface) Attached() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attached
}

// Playing reports whether the sink is playing.
func (s *SinkSurface) Playing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

// Source returns the URL set via the native playback path.
func (s *SinkSurface) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sourceURL
}
