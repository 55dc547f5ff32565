// Package theme resolves the light/dark preference for terminal output.
package theme

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/lumictl/internal/storage/kv"
)

// Mode is the stored preference.
type Mode string

const (
	ModeLight  Mode = "light"
	ModeDark   Mode = "dark"
	ModeSystem Mode = "system"
)

// storageKey is the preference key, shared with the web dashboard.
const storageKey = "theme"

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModeLight, ModeDark, ModeSystem:
		return m, nil
	default:
		return "", fmt.Errorf("invalid theme %q: want light, dark or system", s)
	}
}

// Detector reports the environment's color scheme.
type Detector interface {
	PrefersDark() bool
}

// DetectorFunc adapts a function to Detector.
type DetectorFunc func() bool

func (f DetectorFunc) PrefersDark() bool { return f() }

// EnvDetector reads LUMISYNC_COLOR_SCHEME, then the terminal's COLORFGBG.
type EnvDetector struct{}

// PrefersDark implements Detector.
func (EnvDetector) PrefersDark() bool {
	switch strings.ToLower(os.Getenv("LUMISYNC_COLOR_SCHEME")) {
	case "dark":
		return true
	case "light":
		return false
	}

	// COLORFGBG is "fg;bg" or "fg;default;bg"
	if v := os.Getenv("COLORFGBG"); v != "" {
		parts := strings.Split(v, ";")
		bg, err := strconv.Atoi(parts[len(parts)-1])
		if err == nil {
			return (bg >= 0 && bg <= 6) || bg == 8
		}
	}
	return false
}

// Manager holds the current mode and notifies subscribers on changes.
type Manager struct {
	bucket   kv.Bucket
	detector Detector

	mu         sync.RWMutex
	mode       Mode
	systemDark bool
	listeners  map[int]func(resolved Mode)
	nextID     int
}

// New reads the stored mode once. A missing or invalid value means system.
func New(bucket kv.Bucket, detector Detector) *Manager {
	if detector == nil {
		detector = EnvDetector{}
	}
	m := &Manager{
		bucket:     bucket,
		detector:   detector,
		mode:       ModeSystem,
		systemDark: detector.PrefersDark(),
	}

	stored, err := kv.GetString(bucket, storageKey)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read theme preference")
	}
	if stored != "" {
		if mode, err := ParseMode(stored); err == nil {
			m.mode = mode
		} else {
			log.Warn().Str("theme", stored).Msg("Ignoring invalid stored theme")
		}
	}
	return m
}

// Mode returns the preference as stored.
func (m *Manager) Mode() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.mode
}

// Resolved returns light or dark.
func (m *Manager) Resolved() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.resolvedLocked()
}

func (m *Manager) resolvedLocked() Mode {
	switch m.mode {
	case ModeLight, ModeDark:
		return m.mode
	}
	if m.systemDark {
		return ModeDark
	}
	return ModeLight
}

// IsDark reports whether the resolved theme is dark.
func (m *Manager) IsDark() bool {
	return m.Resolved() == ModeDark
}

// Set stores a new mode and notifies subscribers if the resolved theme changed.
func (m *Manager) Set(mode Mode) error {
	if _, err := ParseMode(string(mode)); err != nil {
		return err
	}
	if err := m.bucket.Store(storageKey, string(mode), nil); err != nil {
		return fmt.Errorf("failed to save theme: %w", err)
	}

	m.mu.Lock()
	before := m.resolvedLocked()
	m.mode = mode
	after := m.resolvedLocked()
	m.mu.Unlock()

	if before != after {
		m.notify(after)
	}
	return nil
}

// Toggle switches to the opposite of the resolved theme.
func (m *Manager) Toggle() error {
	if m.Resolved() == ModeDark {
		return m.Set(ModeLight)
	}
	return m.Set(ModeDark)
}

// Subscribe registers a listener for resolved theme changes and returns
// a function that removes it.
func (m *Manager) Subscribe(fn func(resolved Mode)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listeners == nil {
		m.listeners = make(map[int]func(Mode))
	}
	id := m.nextID
	m.nextID++
	m.listeners[id] = fn

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// Refresh re-reads the detector. While in system mode a changed
// environment preference is reported to subscribers.
func (m *Manager) Refresh() {
	dark := m.detector.PrefersDark()

	m.mu.Lock()
	before := m.resolvedLocked()
	m.systemDark = dark
	after := m.resolvedLocked()
	m.mu.Unlock()

	if before != after {
		log.Debug().Str("theme", string(after)).Msg("System color scheme changed")
		m.notify(after)
	}
}

// Watch polls the detector until ctx is cancelled.
func (m *Manager) Watch(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Refresh()
		}
	}
}

func (m *Manager) notify(resolved Mode) {
	m.mu.RLock()
	ids := make([]int, 0, len(m.listeners))
	for id := range m.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	listeners := make([]func(Mode), 0, len(ids))
	for _, id := range ids {
		listeners = append(listeners, m.listeners[id])
	}
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(resolved)
	}
}
