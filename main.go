// Command postureguard monitors seated posture from a stream of skeletal
// landmark snapshots, scores it against a personal calibration baseline and
// alerts when bad posture persists.
//
// Landmarks arrive as newline-delimited JSON on stdin, one snapshot per
// detection cycle, produced by an external pose/face detector. Run with
// -demo to use a built-in synthetic provider instead.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/posture-data/postureguard/internal/alert"
	"github.com/posture-data/postureguard/internal/api"
	"github.com/posture-data/postureguard/internal/calibration"
	"github.com/posture-data/postureguard/internal/db"
	"github.com/posture-data/postureguard/internal/landmark"
	"github.com/posture-data/postureguard/internal/monitoring"
	"github.com/posture-data/postureguard/internal/posture"
	"github.com/posture-data/postureguard/internal/session"
	"github.com/posture-data/postureguard/internal/timeutil"
)

var (
	listen       = flag.String("listen", ":8080", "HTTP listen address")
	dbFile       = flag.String("db", "posture_sessions.db", "session database path (empty to disable)")
	calFile      = flag.String("calibration", defaultCalibrationPath(), "calibration baseline path")
	logFile      = flag.String("session-log", "", "CSV session log path (empty to disable)")
	sensitivity  = flag.String("sensitivity", string(posture.DefaultSensitivity), "sensitivity preset: low, medium or high")
	interval     = flag.Duration("interval", session.DefaultCheckInterval, "posture check interval")
	window       = flag.Int("smoothing", posture.DefaultSmoothingWindow, "score smoothing window (20-30 samples)")
	thresholds   = flag.String("thresholds", "", "optional JSON threshold overrides file")
	sayCmd       = flag.String("say", "", "command to speak alerts (e.g. say); alerts are logged when empty")
	migrationsUp = flag.Bool("migrate", false, "run database migrations and exit")
	migrations   = flag.String("migrations", "migrations", "migrations directory")
	calibrate    = flag.Bool("calibrate", false, "run calibration on startup")
	demo         = flag.Bool("demo", false, "use a synthetic landmark provider instead of stdin")
	debug        = flag.Bool("debug", false, "log per-tick diagnostics")
)

func defaultCalibrationPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "posture_calibration.json"
	}
	return filepath.Join(home, ".postureguard", "calibration.json")
}

func newProvider() landmark.Provider {
	if *demo {
		// A confident upright pose; useful for exercising the API surface
		// without a detector attached.
		return &landmark.StaticProvider{Snapshot: &landmark.Snapshot{
			Nose:          landmark.Landmark{X: 0.50, Y: 0.30, Visibility: 1},
			LeftEar:       landmark.Landmark{X: 0.55, Y: 0.32, Visibility: 1},
			RightEar:      landmark.Landmark{X: 0.45, Y: 0.32, Visibility: 1},
			LeftShoulder:  landmark.Landmark{X: 0.62, Y: 0.55, Visibility: 1},
			RightShoulder: landmark.Landmark{X: 0.38, Y: 0.55, Visibility: 1},
		}}
	}
	return landmark.NewStreamProvider(os.Stdin)
}

func run() error {
	monitoring.Debug = *debug

	sens, err := posture.ParseSensitivity(*sensitivity)
	if err != nil {
		return err
	}

	var overrides *posture.ThresholdOverrides
	if *thresholds != "" {
		overrides, err = posture.LoadThresholdOverrides(*thresholds)
		if err != nil {
			return err
		}
	}

	var store *db.Store
	if *dbFile != "" {
		store, err = db.Open(*dbFile)
		if err != nil {
			return err
		}
		defer store.Close()
	}

	if *migrationsUp {
		if store == nil {
			return errors.New("-migrate requires -db")
		}
		if err := store.MigrateUp(*migrations); err != nil {
			return err
		}
		version, dirty, err := store.MigrateVersion(*migrations)
		if err != nil {
			return err
		}
		log.Printf("migrations applied (version %d, dirty=%v)", version, dirty)
		return nil
	}

	var sessionLog *session.Log
	if *logFile != "" {
		sessionLog, err = session.OpenLog(*logFile)
		if err != nil {
			return err
		}
		defer sessionLog.Close()
	}

	var sink alert.Sink = alert.LogSink{}
	if *sayCmd != "" {
		sink = alert.CommandSink{Name: *sayCmd}
	}

	monitor, err := session.NewMonitor(session.Config{
		Provider:         newProvider(),
		CalibrationStore: &calibration.Store{Path: *calFile},
		Clock:            timeutil.RealClock{},
		Sink:             sink,
		Store:            store,
		Log:              sessionLog,
		Interval:         *interval,
		SmoothingWindow:  *window,
		Sensitivity:      sens,
		Overrides:        overrides,
	})
	if err != nil {
		return err
	}

	if *calibrate {
		log.Printf("calibrating: sit up straight")
		if err := monitor.Calibrate(context.Background()); err != nil {
			return err
		}
	}

	if monitor.Calibrated() {
		if err := monitor.Start(); err != nil {
			return err
		}
	} else {
		log.Printf("no baseline yet; POST /api/calibrate (or rerun with -calibrate) to begin monitoring")
	}

	srv := &http.Server{
		Addr:    *listen,
		Handler: api.NewServer(monitor, store).Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("listening on %s", *listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errc:
		monitor.Stop()
		return err
	case sig := <-sigc:
		log.Printf("received %s, shutting down", sig)
	}

	monitor.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
