package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/facewatch/internal/models"
)

func logEntry(camera, identity string, ts time.Time) models.DetectionLogEntry {
	return models.DetectionLogEntry{
		Timestamp:   ts,
		Camera:      camera,
		Identity:    identity,
		Confidence:  0.8,
		BoundingBox: models.FaceBox{X: 10, Y: 20, Width: 50, Height: 60},
	}
}

func TestDetectionLogAppendAndRead(t *testing.T) {
	dir := t.TempDir()
	l := NewDetectionLog(dir)

	ts := time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)
	require.NoError(t, l.Append(logEntry("lobby", "Alice", ts)))
	require.NoError(t, l.Append(logEntry("lobby", "Unknown", ts.Add(time.Minute))))

	entries, err := l.GetLogs("lobby", "2026-03-15")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Alice", entries[0].Identity)
	assert.Equal(t, "Unknown", entries[1].Identity)

	// One JSON file per camera per day.
	_, err = os.Stat(filepath.Join(dir, "lobby_2026-03-15.json"))
	assert.NoError(t, err)
}

func TestDetectionLogUTCDateBoundary(t *testing.T) {
	l := NewDetectionLog(t.TempDir())

	// 23:30 UTC-5 is already the next day in UTC.
	loc := time.FixedZone("UTC-5", -5*3600)
	ts := time.Date(2026, 3, 15, 23, 30, 0, 0, loc)
	require.NoError(t, l.Append(logEntry("gate", "Bob", ts)))

	entries, err := l.GetLogs("gate", "2026-03-16")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	entries, err = l.GetLogs("gate", "2026-03-15")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetectionLogMissingFile(t *testing.T) {
	l := NewDetectionLog(t.TempDir())

	entries, err := l.GetLogs("nowhere", "2026-01-01")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetectionLogInvalidDate(t *testing.T) {
	l := NewDetectionLog(t.TempDir())

	_, err := l.GetLogs("lobby", "15-03-2026")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestDetectionLogAllCameras(t *testing.T) {
	l := NewDetectionLog(t.TempDir())

	base := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(logEntry("lobby", "Alice", base)))
	require.NoError(t, l.Append(logEntry("gate", "Bob", base.Add(2*time.Minute))))
	require.NoError(t, l.Append(logEntry("lobby", "Carol", base.Add(time.Minute))))
	// Different day, must not appear.
	require.NoError(t, l.Append(logEntry("gate", "Dave", base.Add(24*time.Hour))))

	entries, err := l.GetLogs(AllCameras, "2026-03-15")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Merged across cameras, newest first.
	assert.Equal(t, "Bob", entries[0].Identity)
	assert.Equal(t, "Carol", entries[1].Identity)
	assert.Equal(t, "Alice", entries[2].Identity)
}

func TestDetectionLogAllCamerasEmptyDir(t *testing.T) {
	l := NewDetectionLog(filepath.Join(t.TempDir(), "does-not-exist"))

	entries, err := l.GetLogs(AllCameras, "2026-03-15")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDetectionLogCorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lobby_2026-03-15.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o644))

	l := NewDetectionLog(dir)
	ts := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	require.NoError(t, l.Append(logEntry("lobby", "Alice", ts)))

	entries, err := l.GetLogs("lobby", "2026-03-15")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
