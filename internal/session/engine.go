package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mogiioin/hls-m3u8/m3u8"
	"github.com/sirupsen/logrus"

	"github.com/tvdeck/tvdeck/internal/models"
)

// Reload pacing and failure tolerance for the media playlist loop.
const (
	minReloadInterval  = time.Second
	maxReloadInterval  = 30 * time.Second
	defaultReloadDelay = 3 * time.Second
	maxReloadFailures  = 3
)

// engineEvents are the callbacks an engine emits. The manager binds each
// callback to the session generation that created the engine, so events from
// a superseded engine are discarded before they touch state.
type engineEvents struct {
	onManifest    func(levels []models.QualityLevel)
	onLevelSwitch func(index int)
	onRecovered   func()
	onFatal       func(class ErrorClass, err error)
}

// engine is the software decoding path: it loads the HLS manifest, exposes
// the variant ladder as quality levels, and keeps the selected media playlist
// at the live edge. One engine serves exactly one LoadStream call.
type engine struct {
	url    string
	client *http.Client
	events engineEvents
	log    logrus.FieldLogger

	mu              sync.Mutex
	closed          bool
	cancel          context.CancelFunc
	base            *url.URL
	variants        []*m3u8.Variant
	desired         int // requested level, models.QualityAuto for adaptive
	active          int
	directURL       string // set when the stream is a media playlist with no master
	pendingRecovery bool
	reload          chan struct{}
}

func newEngine(streamURL string, client *http.Client, events engineEvents, log logrus.FieldLogger) *engine {
	return &engine{
		url:     streamURL,
		client:  client,
		events:  events,
		log:     log,
		desired: models.QualityAuto,
		active:  models.QualityAuto,
		reload:  make(chan struct{}, 1),
	}
}

// start begins manifest loading. It never blocks.
func (e *engine) start() {
	ctx := e.newRunContext()
	if ctx == nil {
		return
	}
	go e.run(ctx)
}

// restart re-attempts the full manifest load after a fatal network error.
func (e *engine) restart() {
	e.start()
}

// recoverMedia resets the media pipeline without refetching the master
// manifest: the media playlist loop resumes from the cached variant choice.
func (e *engine) recoverMedia() {
	e.mu.Lock()
	hasSource := len(e.variants) > 0 || e.directURL != ""
	e.pendingRecovery = true
	e.mu.Unlock()

	if !hasSource {
		// Nothing cached yet; a full restart is the only option.
		e.start()
		return
	}
	ctx := e.newRunContext()
	if ctx == nil {
		return
	}
	go e.mediaLoop(ctx)
}

// stop cancels all loading. Safe to call more than once.
func (e *engine) stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// setLevel pins playback to one variant, or returns to automatic selection
// with models.QualityAuto. Out-of-range indexes are ignored.
func (e *engine) setLevel(index int) {
	e.mu.Lock()
	if e.closed || (index != models.QualityAuto && (index < 0 || index >= len(e.variants))) {
		e.mu.Unlock()
		return
	}
	e.desired = index
	chosen := e.chooseLevelLocked()
	changed := chosen != e.active
	e.active = chosen
	e.mu.Unlock()

	if changed {
		e.kickReload()
		e.events.onLevelSwitch(chosen)
	}
}

// newRunContext replaces the engine's run context, cancelling any previous
// loop. Returns nil when the engine is already stopped.
func (e *engine) newRunContext() context.Context {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	if e.cancel != nil {
		e.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	return ctx
}

func (e *engine) run(ctx context.Context) {
	pl, listType, err := e.fetchPlaylist(ctx, e.url)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		// Manifest load and parse failures are the network error class.
		e.events.onFatal(ErrorNetwork, err)
		return
	}

	switch listType {
	case m3u8.MASTER:
		master := pl.(*m3u8.MasterPlaylist)
		levels, variants := levelsFromMaster(master)
		base, perr := url.Parse(e.url)
		if perr != nil {
			e.events.onFatal(ErrorOther, fmt.Errorf("parse stream url: %w", perr))
			return
		}
		if len(variants) == 0 {
			e.events.onFatal(ErrorOther, fmt.Errorf("master playlist has no variants"))
			return
		}

		e.mu.Lock()
		e.base = base
		e.variants = variants
		chosen := e.chooseLevelLocked()
		e.active = chosen
		e.mu.Unlock()

		e.events.onManifest(levels)
		e.events.onLevelSwitch(chosen)
		e.mediaLoop(ctx)

	case m3u8.MEDIA:
		e.mu.Lock()
		e.directURL = e.url
		e.mu.Unlock()
		// A bare media playlist offers no selectable renditions.
		e.events.onManifest([]models.QualityLevel{})
		e.mediaLoop(ctx)

	default:
		e.events.onFatal(ErrorOther, fmt.Errorf("unrecognized playlist type"))
	}
}

// mediaLoop keeps the active media playlist fresh, reloading at half the
// target duration. Transient failures are logged and retried; after
// maxReloadFailures consecutive failures the error class is escalated.
func (e *engine) mediaLoop(ctx context.Context) {
	failures := 0
	var lastClass ErrorClass
	var lastErr error

	for {
		mediaURL, err := e.currentMediaURL()
		if err != nil {
			e.events.onFatal(ErrorOther, err)
			return
		}

		delay := defaultReloadDelay
		mp, class, err := e.fetchMedia(ctx, mediaURL)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			lastClass, lastErr = class, err
			if failures >= maxReloadFailures {
				e.events.onFatal(lastClass, lastErr)
				return
			}
			e.log.WithError(err).Warn("media playlist reload failed")
			delay = minReloadInterval
		} else {
			failures = 0
			e.mu.Lock()
			recovered := e.pendingRecovery
			e.pendingRecovery = false
			e.mu.Unlock()
			if recovered {
				e.events.onRecovered()
			}
			if mp.TargetDuration > 0 {
				delay = time.Duration(mp.TargetDuration) * time.Second / 2
			}
			if delay < minReloadInterval {
				delay = minReloadInterval
			}
			if delay > maxReloadInterval {
				delay = maxReloadInterval
			}
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-e.reload:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// fetchPlaylist downloads and decodes a manifest of either kind.
func (e *engine) fetchPlaylist(ctx context.Context, manifestURL string) (m3u8.Playlist, m3u8.ListType, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("NewRequest: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("fetch %s: HTTP %d", manifestURL, resp.StatusCode)
	}
	pl, listType, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, 0, fmt.Errorf("decode manifest: %w", err)
	}
	return pl, listType, nil
}

// fetchMedia downloads the media playlist, classifying failures: transport
// and status problems are network errors, decode problems are media errors.
func (e *engine) fetchMedia(ctx context.Context, mediaURL string) (*m3u8.MediaPlaylist, ErrorClass, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, ErrorNetwork, fmt.Errorf("NewRequest: %w", err)
	}
	resp, err := e.client.Do(req)
	if err != nil {
		return nil, ErrorNetwork, fmt.Errorf("Do: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, ErrorNetwork, fmt.Errorf("fetch %s: HTTP %d", mediaURL, resp.StatusCode)
	}
	pl, listType, err := m3u8.DecodeFrom(resp.Body, false)
	if err != nil {
		return nil, ErrorMedia, fmt.Errorf("decode media playlist: %w", err)
	}
	mp, ok := pl.(*m3u8.MediaPlaylist)
	if !ok || listType != m3u8.MEDIA {
		return nil, ErrorMedia, fmt.Errorf("expected media playlist at %s", mediaURL)
	}
	return mp, ErrorNone, nil
}

// currentMediaURL resolves the active variant's URI against the master URL,
// or returns the direct media playlist URL.
func (e *engine) currentMediaURL() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.directURL != "" {
		return e.directURL, nil
	}
	if e.active < 0 || e.active >= len(e.variants) {
		return "", fmt.Errorf("no active variant")
	}
	ref, err := url.Parse(e.variants[e.active].URI)
	if err != nil {
		return "", fmt.Errorf("parse variant uri: %w", err)
	}
	return e.base.ResolveReference(ref).String(), nil
}

// chooseLevelLocked picks the variant index for the current desired setting.
// Automatic selection takes the highest-bandwidth variant.
func (e *engine) chooseLevelLocked() int {
	if e.desired != models.QualityAuto && e.desired >= 0 && e.desired < len(e.variants) {
		return e.desired
	}
	best := 0
	for i, v := range e.variants {
		if v.Bandwidth > e.variants[best].Bandwidth {
			best = i
		}
	}
	return best
}

func (e *engine) kickReload() {
	select {
	case e.reload <- struct{}{}:
	default:
	}
}

// levelsFromMaster converts the master playlist's variant ladder into quality
// levels, skipping I-frame-only entries. Level names follow the "<height>p"
// convention, falling back to a bitrate label for audio-only variants.
func levelsFromMaster(master *m3u8.MasterPlaylist) ([]models.QualityLevel, []*m3u8.Variant) {
	var levels []models.QualityLevel
	var variants []*m3u8.Variant

	for _, v := range master.Variants {
		if v == nil || v.Iframe {
			continue
		}
		index := len(variants)
		width, height := parseResolution(v.Resolution)
		name := fmt.Sprintf("%dp", height)
		if height == 0 {
			name = fmt.Sprintf("%d kbps", v.Bandwidth/1000)
		}
		levels = append(levels, models.QualityLevel{
			Index:   index,
			Height:  height,
			Width:   width,
			Bitrate: int(v.Bandwidth),
			Name:    name,
		})
		variants = append(variants, v)
	}
	return levels, variants
}

// parseResolution splits an HLS RESOLUTION value ("1280x720") into width and
// height, returning zeros when absent or malformed.
func parseResolution(res string) (width, height int) {
	w, h, ok := strings.Cut(strings.ToLower(res), "x")
	if !ok {
		return 0, 0
	}
	width, err1 := strconv.Atoi(strings.TrimSpace(w))
	height, err2 := strconv.Atoi(strings.TrimSpace(h))
	if err1 != nil || err2 != nil {
		return 0, 0
	}
	return width, height
}
