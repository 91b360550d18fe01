package storage

import (
	"context"
	"image"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/facewatch/internal/models"
)

func testFrame() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 120, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 120; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return img
}

func TestSnapshotName(t *testing.T) {
	ts := time.Date(2026, 3, 15, 9, 30, 45, 123_000_000, time.UTC)

	name := SnapshotName("lobby", ts, "Alice", 0)
	assert.Equal(t, "lobby_2026-03-15T09-30-45-123Z_Alice_0.jpg", name)
}

func TestParseSnapshotName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		ok       bool
		want     models.SnapshotInfo
	}{
		{
			name:     "simple identity",
			filename: "lobby_2026-03-15T09-30-45-123Z_Alice_0.jpg",
			ok:       true,
			want: models.SnapshotInfo{
				Filename:  "lobby_2026-03-15T09-30-45-123Z_Alice_0.jpg",
				Camera:    "lobby",
				Timestamp: "2026-03-15T09-30-45-123Z",
				Identity:  "Alice",
				FaceIndex: 0,
			},
		},
		{
			name:     "identity with underscores",
			filename: "gate_2026-03-15T10-00-00-000Z_Mary_Jane_Watson_2.jpg",
			ok:       true,
			want: models.SnapshotInfo{
				Filename:  "gate_2026-03-15T10-00-00-000Z_Mary_Jane_Watson_2.jpg",
				Camera:    "gate",
				Timestamp: "2026-03-15T10-00-00-000Z",
				Identity:  "Mary_Jane_Watson",
				FaceIndex: 2,
			},
		},
		{"too few parts", "lobby_readme.jpg", false, models.SnapshotInfo{}},
		{"non-numeric index", "lobby_ts_Alice_x.jpg", false, models.SnapshotInfo{}},
		{"unrelated file", "notes.txt", false, models.SnapshotInfo{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSnapshotName(tt.filename)
			require.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSnapshotNameRoundTrip(t *testing.T) {
	ts := time.Date(2026, 3, 15, 14, 5, 6, 789_000_000, time.UTC)
	name := SnapshotName("entrance", ts, "John_Doe", 3)

	info, ok := ParseSnapshotName(name)
	require.True(t, ok)
	assert.Equal(t, "entrance", info.Camera)
	assert.Equal(t, "John_Doe", info.Identity)
	assert.Equal(t, 3, info.FaceIndex)
}

func TestSnapshotSaveAndList(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), nil)
	box := models.FaceBox{X: 10, Y: 10, Width: 40, Height: 40}

	early := time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	_, err := s.Save(context.Background(), "lobby", testFrame(), box, models.Identity{Name: "Alice"}, 0, early)
	require.NoError(t, err)
	name, err := s.Save(context.Background(), "lobby", testFrame(), box, models.Identity{Name: "Bob"}, 0, late)
	require.NoError(t, err)

	infos, err := s.List()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Newest first.
	assert.Equal(t, "Bob", infos[0].Identity)
	assert.Equal(t, "Alice", infos[1].Identity)

	path, err := s.Path(name)
	require.NoError(t, err)
	assert.FileExists(t, path)
}

func TestSnapshotPathRejectsTraversal(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), nil)

	_, err := s.Path("../../etc/passwd")
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestSnapshotPathMissing(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), nil)

	_, err := s.Path("lobby_x_Alice_0.jpg")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSnapshotListEmptyDir(t *testing.T) {
	s := NewSnapshotStore(t.TempDir(), nil)

	infos, err := s.List()
	require.NoError(t, err)
	assert.Empty(t, infos)
}
