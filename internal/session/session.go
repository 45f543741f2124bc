// Package session manages the lifecycle of one adaptive-bitrate streaming
// session: protocol negotiation, manifest loading, quality-level tracking,
// error classification with bounded recovery, and playback transport state.
package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/proxy"
)

// ErrUnsupported is returned when the playback surface offers neither MSE
// decoding nor native HLS support.
var ErrUnsupported = errors.New("HLS is not supported by this playback surface")

// Phase is the session lifecycle state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoading
	PhaseReady
	PhaseError
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseError:
		return "error"
	}
	return "unknown"
}

// MarshalText lets Phase render as its name in JSON state snapshots.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// ErrorClass partitions fatal streaming errors by recovery strategy.
type ErrorClass int

const (
	ErrorNone    ErrorClass = iota
	ErrorNetwork            // retryable: reload the manifest
	ErrorMedia              // retryable: reset the media pipeline, keep the manifest
	ErrorOther              // terminal: requires an explicit LoadStream
)

func (c ErrorClass) String() string {
	switch c {
	case ErrorNetwork:
		return "network"
	case ErrorMedia:
		return "media"
	case ErrorOther:
		return "other"
	}
	return "none"
}

// State is an observable snapshot of the session.
type State struct {
	Phase          Phase                 `json:"phase"`
	URL            string                `json:"url,omitempty"`
	IsLoading      bool                  `json:"isLoading"`
	IsPlaying      bool                  `json:"isPlaying"`
	Err            string                `json:"error,omitempty"`
	CurrentQuality int                   `json:"currentQuality"`
	QualityLevels  []models.QualityLevel `json:"qualityLevels"`
}

// Options configure a Manager.
type Options struct {
	AutoPlay      bool
	Muted         bool
	Rewriter      *proxy.Rewriter // optional CORS proxy applied to every stream URL
	Client        *http.Client    // manifest fetch client; defaulted when nil
	MaxRecoveries int             // bound on automatic retries per LoadStream; defaulted when 0
	Logger        logrus.FieldLogger
}

// Manager owns at most one live streaming session bound to one playback
// surface. LoadStream supersedes any prior session; a generation counter
// guarantees a superseded session's late events never touch state.
type Manager struct {
	surface Surface
	opts    Options
	client  *http.Client
	log     logrus.FieldLogger

	mu         sync.Mutex
	gen        uint64
	eng        *engine
	native     bool
	recoveries int
	state      State
}

// New creates a Manager bound to surface. The Manager starts Idle.
func New(surface Surface, opts Options) *Manager {
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.MaxRecoveries == 0 {
		opts.MaxRecoveries = 3
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Manager{
		surface: surface,
		opts:    opts,
		client:  opts.Client,
		log:     opts.Logger,
		state:   idleState(),
	}
}

func idleState() State {
	return State{
		Phase:          PhaseIdle,
		CurrentQuality: models.QualityAuto,
		QualityLevels:  []models.QualityLevel{},
	}
}

// LoadStream starts a new session against rawURL, tearing down any prior
// session first. It returns immediately; progress is observable via State.
// The only synchronous failure is an unsupported playback surface.
func (m *Manager) LoadStream(rawURL string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.teardownLocked()
	m.gen++
	gen := m.gen
	m.recoveries = 0

	streamURL := rawURL
	if m.opts.Rewriter != nil {
		streamURL = m.opts.Rewriter.Rewrite(rawURL)
	}

	m.state = State{
		Phase:          PhaseLoading,
		URL:            streamURL,
		IsLoading:      true,
		CurrentQuality: models.QualityAuto,
		QualityLevels:  []models.QualityLevel{},
	}
	m.surface.SetMuted(m.opts.Muted)

	switch {
	case m.surface.SupportsMSE():
		if err := m.surface.Attach(); err != nil {
			m.state.Phase = PhaseError
			m.state.IsLoading = false
			m.state.Err = fmt.Sprintf("attach playback surface: %v", err)
			return fmt.Errorf("attach playback surface: %w", err)
		}
		// The manifest is loaded only after attachment has completed.
		eng := newEngine(streamURL, m.client, m.eventsFor(gen), m.log.WithField("session", gen))
		m.eng = eng
		eng.start()

	case m.surface.CanPlayNatively(MIMETypeHLS):
		m.native = true
		go m.loadNative(gen, streamURL)

	default:
		m.state.Phase = PhaseError
		m.state.IsLoading = false
		m.state.Err = ErrUnsupported.Error()
		return ErrUnsupported
	}
	return nil
}

// eventsFor binds engine callbacks to one session generation. Every callback
// goes through apply, which drops events whose generation is stale.
func (m *Manager) eventsFor(gen uint64) engineEvents {
	return engineEvents{
		onManifest: func(levels []models.QualityLevel) {
			m.apply(gen, func() { m.manifestParsedLocked(gen, levels) })
		},
		onLevelSwitch: func(index int) {
			m.apply(gen, func() { m.state.CurrentQuality = index })
		},
		onRecovered: func() {
			m.apply(gen, func() {
				m.state.Phase = PhaseReady
				m.state.IsLoading = false
				m.state.Err = ""
			})
		},
		onFatal: func(class ErrorClass, err error) {
			m.apply(gen, func() { m.fatalLocked(class, err) })
		},
	}
}

// apply runs fn under the lock only when gen is still the live session.
func (m *Manager) apply(gen uint64, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		m.log.WithField("session", gen).Debug("discarding event from superseded session")
		return
	}
	fn()
}

// loadNative drives the built-in playback path: hand the surface the URL and
// wait for its metadata-loaded signal.
func (m *Manager) loadNative(gen uint64, streamURL string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.client.Timeout)
	defer cancel()
	err := m.surface.SetSource(ctx, streamURL)
	m.apply(gen, func() {
		if err != nil {
			m.state.Phase = PhaseError
			m.state.IsLoading = false
			m.state.Err = "failed to load stream"
			return
		}
		m.manifestParsedLocked(gen, nil)
	})
}

// manifestParsedLocked moves the session to Ready and kicks auto-play.
func (m *Manager) manifestParsedLocked(gen uint64, levels []models.QualityLevel) {
	m.state.Phase = PhaseReady
	m.state.IsLoading = false
	m.state.Err = ""
	if levels == nil {
		levels = []models.QualityLevel{}
	}
	m.state.QualityLevels = levels

	if m.opts.AutoPlay {
		go m.autoPlay(gen)
	}
}

func (m *Manager) autoPlay(gen uint64) {
	err := m.surface.Play(context.Background())
	m.apply(gen, func() {
		if err != nil {
			// Auto-play rejection is non-fatal; the phase does not change.
			m.log.WithError(err).Warn("auto-play failed")
			m.state.Err = ErrAutoplayBlocked.Error()
			return
		}
		m.state.IsPlaying = true
	})
}

// fatalLocked applies the error taxonomy: network and media classes retry
// automatically within the recovery budget, anything else tears the session
// down and waits for an explicit LoadStream.
func (m *Manager) fatalLocked(class ErrorClass, err error) {
	m.state.IsLoading = false
	m.state.Phase = PhaseError
	m.log.WithError(err).WithField("class", class.String()).Error("fatal streaming error")

	switch class {
	case ErrorNetwork:
		m.state.Err = "network error: failed to load stream"
		if m.eng != nil && m.recoveries < m.opts.MaxRecoveries {
			m.recoveries++
			m.state.Phase = PhaseLoading
			m.state.IsLoading = true
			m.eng.restart()
		}
	case ErrorMedia:
		m.state.Err = "media error: failed to play stream"
		if m.eng != nil && m.recoveries < m.opts.MaxRecoveries {
			m.recoveries++
			m.state.Phase = PhaseLoading
			m.state.IsLoading = true
			m.eng.recoverMedia()
		}
	default:
		m.state.Err = "fatal error: cannot play stream"
		m.teardownLocked()
	}
}

// Play starts playback on the surface.
func (m *Manager) Play(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	surface := m.surface
	m.mu.Unlock()

	err := surface.Play(ctx)

	m.apply(gen, func() {
		if err != nil {
			m.state.Err = "failed to play video"
			return
		}
		m.state.IsPlaying = true
		m.state.Err = ""
	})
	if err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

// Pause pauses playback on the surface.
func (m *Manager) Pause() {
	m.mu.Lock()
	gen := m.gen
	surface := m.surface
	m.mu.Unlock()

	surface.Pause()
	m.apply(gen, func() { m.state.IsPlaying = false })
}

// TogglePlay flips between playing and paused.
func (m *Manager) TogglePlay(ctx context.Context) error {
	m.mu.Lock()
	playing := m.state.IsPlaying
	m.mu.Unlock()
	if playing {
		m.Pause()
		return nil
	}
	return m.Play(ctx)
}

// SetQuality pins the session to a quality level index, or returns to
// automatic selection with models.QualityAuto. No-op on the native path.
func (m *Manager) SetQuality(index int) {
	m.mu.Lock()
	eng := m.eng
	if eng != nil {
		if index != models.QualityAuto && (index < 0 || index >= len(m.state.QualityLevels)) {
			m.mu.Unlock()
			return
		}
		m.state.CurrentQuality = index
	}
	m.mu.Unlock()
	if eng != nil {
		eng.setLevel(index)
	}
}

// Destroy tears down the session and resets state to Idle. Idempotent.
func (m *Manager) Destroy() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked()
	m.gen++ // anything still in flight is now stale
	m.recoveries = 0
	m.state = idleState()
}

// State returns a copy of the observable session state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.state
	s.QualityLevels = append([]models.QualityLevel(nil), m.state.QualityLevels...)
	if s.QualityLevels == nil {
		s.QualityLevels = []models.QualityLevel{}
	}
	return s
}

// teardownLocked discards the current decoder and releases the surface
// binding. Callers hold m.mu.
func (m *Manager) teardownLocked() {
	if m.eng != nil {
		m.eng.stop()
		m.eng = nil
	}
	m.native = false
	m.surface.Detach()
}
