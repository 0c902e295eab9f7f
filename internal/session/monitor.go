// Package session runs the per-tick monitoring pipeline: snapshot →
// metrics → comparison → smoothing → alerting → persistence. One Monitor
// owns one sampling pipeline; readers consume copied status snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/posture-data/postureguard/internal/alert"
	"github.com/posture-data/postureguard/internal/calibration"
	"github.com/posture-data/postureguard/internal/db"
	"github.com/posture-data/postureguard/internal/landmark"
	"github.com/posture-data/postureguard/internal/metrics"
	"github.com/posture-data/postureguard/internal/monitoring"
	"github.com/posture-data/postureguard/internal/posture"
	"github.com/posture-data/postureguard/internal/timeutil"
)

// DefaultCheckInterval is the polling cadence of the pipeline.
const DefaultCheckInterval = 500 * time.Millisecond

// calibrationAttempts is how many snapshot reads a calibration run makes,
// roughly three seconds at the provider's effective frame rate.
const calibrationAttempts = 45

// calibrationReadGap paces the calibration capture loop.
const calibrationReadGap = 66 * time.Millisecond

// ErrNotCalibrated is returned when monitoring is requested with no baseline.
var ErrNotCalibrated = errors.New("session: no calibration baseline; calibrate first")

// ErrCalibrating is returned when a calibration run is already in progress.
var ErrCalibrating = errors.New("session: calibration already in progress")

// Config wires a Monitor's collaborators. Provider and CalibrationStore are
// required; Store and Log are optional.
type Config struct {
	Provider         landmark.Provider
	CalibrationStore *calibration.Store
	Clock            timeutil.Clock
	Sink             alert.Sink
	Store            *db.Store
	Log              *Log
	Interval         time.Duration
	SmoothingWindow  int
	Sensitivity      posture.Sensitivity
	// Overrides, when set, are layered over whichever preset is active.
	Overrides *posture.ThresholdOverrides
}

// Status is a copied snapshot of the pipeline's derived outputs. It may be
// stale by up to one tick.
type Status struct {
	Running     bool                `json:"running"`
	Calibrating bool                `json:"calibrating"`
	Calibrated  bool                `json:"calibrated"`
	Score       int                 `json:"score"`
	Issues      []posture.Issue     `json:"issues"`
	Sensitivity posture.Sensitivity `json:"sensitivity"`
	LastSample  time.Time           `json:"last_sample,omitempty"`
	SessionID   string              `json:"session_id,omitempty"`
}

// Monitor owns the sampling pipeline for one user session.
type Monitor struct {
	provider  landmark.Provider
	calStore  *calibration.Store
	clock     timeutil.Clock
	store     *db.Store
	log       *Log
	interval  time.Duration
	overrides *posture.ThresholdOverrides

	smoother *posture.Smoother
	notifier *alert.Notifier

	mu          sync.Mutex
	baseline    *metrics.Vector
	sensitivity posture.Sensitivity
	running     bool
	calibrating bool
	score       int
	issues      []posture.Issue
	lastSample  time.Time
	sessionID   string
	stop        chan struct{}
	done        chan struct{}
}

// NewMonitor builds a Monitor and loads any persisted baseline.
func NewMonitor(cfg Config) (*Monitor, error) {
	if cfg.Provider == nil {
		return nil, errors.New("session: provider is required")
	}
	if cfg.CalibrationStore == nil {
		return nil, errors.New("session: calibration store is required")
	}
	clock := cfg.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	sensitivity := cfg.Sensitivity
	if sensitivity == "" {
		sensitivity = posture.DefaultSensitivity
	}

	baseline, err := cfg.CalibrationStore.Load()
	if err != nil {
		return nil, fmt.Errorf("load baseline: %w", err)
	}

	m := &Monitor{
		provider:    cfg.Provider,
		calStore:    cfg.CalibrationStore,
		clock:       clock,
		store:       cfg.Store,
		log:         cfg.Log,
		interval:    interval,
		overrides:   cfg.Overrides,
		smoother:    posture.NewSmoother(cfg.SmoothingWindow),
		notifier:    alert.NewNotifier(clock, cfg.Sink),
		baseline:    baseline,
		sensitivity: sensitivity,
		score:       100,
	}
	return m, nil
}

// Notifier exposes the alert state machine, primarily so callers can adjust
// its timing before the session starts.
func (m *Monitor) Notifier() *alert.Notifier { return m.notifier }

// Calibrated reports whether a baseline exists.
func (m *Monitor) Calibrated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseline != nil
}

// SetSensitivity switches the active preset. It takes effect on the next
// tick and does not rescale the score history.
func (m *Monitor) SetSensitivity(s posture.Sensitivity) {
	m.mu.Lock()
	m.sensitivity = s
	m.mu.Unlock()
	monitoring.Logf("sensitivity set to %s", s)
}

// Sensitivity returns the active preset.
func (m *Monitor) Sensitivity() posture.Sensitivity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sensitivity
}

func (m *Monitor) thresholds() (posture.ThresholdSet, error) {
	t := posture.Thresholds(m.Sensitivity())
	if m.overrides != nil {
		return m.overrides.Apply(t)
	}
	return t, nil
}

// Status returns a copied snapshot of the derived outputs.
func (m *Monitor) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	issues := make([]posture.Issue, len(m.issues))
	copy(issues, m.issues)
	return Status{
		Running:     m.running,
		Calibrating: m.calibrating,
		Calibrated:  m.baseline != nil,
		Score:       m.score,
		Issues:      issues,
		Sensitivity: m.sensitivity,
		LastSample:  m.lastSample,
		SessionID:   m.sessionID,
	}
}

// Start begins the monitoring loop. It refuses to start without a baseline
// or while a calibration run is in progress.
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calibrating {
		return ErrCalibrating
	}
	if m.running {
		return nil
	}
	if m.baseline == nil {
		return ErrNotCalibrated
	}

	if m.store != nil {
		id, err := m.store.BeginSession(m.sensitivity, m.clock.Now())
		if err != nil {
			return err
		}
		m.sessionID = id
	}

	m.running = true
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop(m.stop, m.done)
	monitoring.Logf("monitoring started (sensitivity %s, interval %s)", m.sensitivity, m.interval)
	return nil
}

// Stop halts the monitoring loop. The stop is cooperative: an in-flight tick
// completes before the loop exits. Both alert timers are cleared.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	stop, done := m.stop, m.done
	sessionID := m.sessionID
	m.sessionID = ""
	m.mu.Unlock()

	close(stop)
	<-done
	m.notifier.Reset()

	if m.store != nil && sessionID != "" {
		if err := m.store.EndSession(sessionID, m.clock.Now()); err != nil {
			monitoring.Logf("failed to end session %s: %v", sessionID, err)
		}
	}
	monitoring.Logf("monitoring stopped")
}

func (m *Monitor) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := m.clock.NewTicker(m.interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			if ended := m.tick(ctx); ended {
				m.mu.Lock()
				m.running = false
				m.mu.Unlock()
				return
			}
		}
	}
}

// tick runs one pass of the pipeline. It reports true when the provider is
// exhausted and the session should end.
func (m *Monitor) tick(ctx context.Context) (ended bool) {
	snap, err := m.provider.Next(ctx)
	switch {
	case err == nil:
	case errors.Is(err, landmark.ErrNoDetection):
		// Nobody in frame; posture state carries over unchanged.
		return false
	case errors.Is(err, io.EOF), errors.Is(err, context.Canceled):
		monitoring.Logf("landmark provider closed; ending session")
		return true
	default:
		// Transient read failure: log and try again next tick.
		monitoring.Logf("snapshot read failed: %v", err)
		return false
	}

	current, ok := metrics.Extract(snap)
	if !ok {
		monitoring.Debugf("low-visibility snapshot skipped")
		return false
	}

	m.mu.Lock()
	baseline := m.baseline
	m.mu.Unlock()
	if baseline == nil {
		return false
	}

	thresholds, err := m.thresholds()
	if err != nil {
		monitoring.Logf("threshold resolution failed: %v", err)
		return false
	}

	issues, raw := posture.Compare(current, *baseline, thresholds)
	smoothed := m.smoother.Push(raw)
	event := m.notifier.Observe(issues, smoothed)
	now := m.clock.Now()

	m.mu.Lock()
	m.score = smoothed
	m.issues = issues
	m.lastSample = now
	sessionID := m.sessionID
	m.mu.Unlock()

	monitoring.Debugf("tick: raw=%d smoothed=%d issues=%d", raw, smoothed, len(issues))

	if m.store != nil && sessionID != "" {
		if err := m.store.RecordSample(sessionID, now, smoothed, issues); err != nil {
			monitoring.Logf("failed to record sample: %v", err)
		}
		if event != nil {
			if err := m.store.RecordAlert(sessionID, now, event.Score, event.Message); err != nil {
				monitoring.Logf("failed to record alert: %v", err)
			}
		}
	}
	if m.log != nil {
		if err := m.log.Append(now, smoothed, issues); err != nil {
			monitoring.Logf("session log write failed: %v", err)
		}
	}
	return false
}

// Calibrate captures a reference posture and replaces the baseline. If
// monitoring is running it is paused for the duration and resumed after a
// successful run. On failure the prior baseline is retained untouched.
func (m *Monitor) Calibrate(ctx context.Context) error {
	m.mu.Lock()
	if m.calibrating {
		m.mu.Unlock()
		return ErrCalibrating
	}
	m.calibrating = true
	wasRunning := m.running
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.calibrating = false
		m.mu.Unlock()
	}()

	if wasRunning {
		m.Stop()
	}

	frames := m.captureFrames(ctx)
	baseline, err := calibration.Calibrate(frames)
	if err != nil {
		return fmt.Errorf("calibration with %d usable frames: %w", len(frames), err)
	}
	if err := m.calStore.Save(baseline); err != nil {
		return fmt.Errorf("persist baseline: %w", err)
	}

	m.mu.Lock()
	m.baseline = &baseline
	m.calibrating = false
	m.mu.Unlock()
	m.smoother.Reset()
	monitoring.Logf("calibration complete (%d usable frames)", len(frames))

	if wasRunning {
		return m.Start()
	}
	return nil
}

func (m *Monitor) captureFrames(ctx context.Context) []metrics.Vector {
	var frames []metrics.Vector
	for i := 0; i < calibrationAttempts; i++ {
		if ctx.Err() != nil {
			break
		}
		snap, err := m.provider.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				break
			}
			m.clock.Sleep(calibrationReadGap)
			continue
		}
		if v, ok := metrics.Extract(snap); ok {
			frames = append(frames, v)
		}
		m.clock.Sleep(calibrationReadGap)
	}
	return frames
}
