package db

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posture-data/postureguard/internal/posture"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := openTestStore(t)

	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	id, err := store.BeginSession(posture.SensitivityMedium, started)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	require.NoError(t, store.EndSession(id, started.Add(time.Hour)))

	var sensitivity string
	var endedAt time.Time
	err = store.QueryRow(
		`SELECT sensitivity, ended_at FROM sessions WHERE session_id = ?`, id,
	).Scan(&sensitivity, &endedAt)
	require.NoError(t, err)
	assert.Equal(t, "medium", sensitivity)
	assert.True(t, endedAt.Equal(started.Add(time.Hour)))
}

func TestRecordAndListSamples(t *testing.T) {
	store := openTestStore(t)
	started := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	id, err := store.BeginSession(posture.SensitivityMedium, started)
	require.NoError(t, err)

	issues := []posture.Issue{
		{Kind: posture.KindHeadDrop, Label: "Head dropping", Deviation: 0.05},
		{Kind: posture.KindSlouch, Label: "Slouching", Deviation: 0.08},
	}
	for i := 0; i < 3; i++ {
		ts := started.Add(time.Duration(i) * 500 * time.Millisecond)
		require.NoError(t, store.RecordSample(id, ts, 90-i, issues))
	}

	samples, err := store.ListSamples(id, 10)
	require.NoError(t, err)
	require.Len(t, samples, 3)

	// Newest first.
	assert.Equal(t, 88, samples[0].Score)
	assert.Equal(t, 90, samples[2].Score)
	assert.Equal(t, "Head dropping; Slouching", samples[0].Issues)
	assert.Equal(t, id, samples[0].SessionID)
}

func TestListSamplesLimit(t *testing.T) {
	store := openTestStore(t)
	started := time.Now().UTC()
	id, err := store.BeginSession(posture.SensitivityLow, started)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		require.NoError(t, store.RecordSample(id, started.Add(time.Duration(i)*time.Second), 100, nil))
	}

	samples, err := store.ListSamples(id, 4)
	require.NoError(t, err)
	assert.Len(t, samples, 4)
}

func TestListSamplesAcrossSessions(t *testing.T) {
	store := openTestStore(t)
	started := time.Now().UTC()

	a, err := store.BeginSession(posture.SensitivityMedium, started)
	require.NoError(t, err)
	b, err := store.BeginSession(posture.SensitivityHigh, started)
	require.NoError(t, err)

	require.NoError(t, store.RecordSample(a, started, 80, nil))
	require.NoError(t, store.RecordSample(b, started.Add(time.Second), 70, nil))

	all, err := store.ListSamples("", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyA, err := store.ListSamples(a, 10)
	require.NoError(t, err)
	require.Len(t, onlyA, 1)
	assert.Equal(t, 80, onlyA[0].Score)
}

func TestSessionStats(t *testing.T) {
	store := openTestStore(t)
	started := time.Now().UTC()
	id, err := store.BeginSession(posture.SensitivityMedium, started)
	require.NoError(t, err)

	for i, score := range []int{100, 80, 60} {
		require.NoError(t, store.RecordSample(id, started.Add(time.Duration(i)*time.Second), score, nil))
	}
	require.NoError(t, store.RecordAlert(id, started.Add(2*time.Second), 60, "Hey! Sit up straight!"))

	stats, err := store.SessionStats(id)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Count)
	assert.InDelta(t, 80.0, stats.Mean, 1e-9)
	assert.Equal(t, 60, stats.Min)
	assert.Equal(t, 100, stats.Max)
	assert.Equal(t, 1, stats.Alerts)
	assert.Equal(t, 1, stats.Sessions)
}

func TestSessionStatsEmpty(t *testing.T) {
	store := openTestStore(t)
	stats, err := store.SessionStats("")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Count)
	assert.Equal(t, 0, stats.Min)
	assert.Equal(t, 0, stats.Max)
}

func TestMigrateUpIsIdempotentWithSchema(t *testing.T) {
	store := openTestStore(t)

	// The bootstrap schema and the first migration describe the same
	// tables, so applying migrations on a bootstrapped database must work.
	require.NoError(t, store.MigrateUp("../../migrations"))

	version, dirty, err := store.MigrateVersion("../../migrations")
	require.NoError(t, err)
	assert.False(t, dirty)
	assert.Equal(t, uint(1), version)
}
