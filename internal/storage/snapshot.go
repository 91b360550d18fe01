package storage

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/your-org/facewatch/internal/models"
	"github.com/your-org/facewatch/internal/vision"
)

const snapshotJPEGQuality = 85

// SnapshotStore writes annotated detection snapshots to disk. Filenames are
// the wire format: listing parses camera, timestamp, identity and face index
// back out of the name, so the naming contract must round-trip exactly.
type SnapshotStore struct {
	dir    string
	mirror *MinIOStore // optional archival copy
}

func NewSnapshotStore(dir string, mirror *MinIOStore) *SnapshotStore {
	return &SnapshotStore{dir: dir, mirror: mirror}
}

// SnapshotName builds `{camera}_{timestamp}_{identity}_{faceIndex}.jpg` with
// ':' and '.' in the timestamp replaced for filesystem safety.
func SnapshotName(camera string, ts time.Time, identity string, faceIndex int) string {
	stamp := ts.UTC().Format("2006-01-02T15:04:05.000Z")
	stamp = strings.NewReplacer(":", "-", ".", "-").Replace(stamp)
	return fmt.Sprintf("%s_%s_%s_%d.jpg", camera, stamp, identity, faceIndex)
}

// ParseSnapshotName recovers snapshot metadata from a filename produced by
// SnapshotName. The second return is false for names that don't fit the
// convention. Identities containing underscores are rejoined from the middle
// tokens; cameras containing underscores cannot be recovered.
func ParseSnapshotName(filename string) (models.SnapshotInfo, bool) {
	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return models.SnapshotInfo{}, false
	}

	idx, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return models.SnapshotInfo{}, false
	}

	return models.SnapshotInfo{
		Filename:  filename,
		Camera:    parts[0],
		Timestamp: parts[1],
		Identity:  strings.Join(parts[2:len(parts)-1], "_"),
		FaceIndex: idx,
	}, true
}

// Save draws the bounding box on a copy of the frame and writes the snapshot.
// The mirror upload is best-effort.
func (s *SnapshotStore) Save(ctx context.Context, camera string, frame image.Image, box models.FaceBox, identity models.Identity, faceIndex int, ts time.Time) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create snapshots dir: %w", err)
	}

	name := SnapshotName(camera, ts, identity.Name, faceIndex)
	annotated := vision.Annotate(frame, box)
	data := vision.EncodeJPEG(annotated, snapshotJPEGQuality)

	if err := os.WriteFile(filepath.Join(s.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("write snapshot %s: %w", name, err)
	}

	if s.mirror != nil {
		key := fmt.Sprintf("snapshots/%s/%s", camera, name)
		if err := s.mirror.PutObject(ctx, key, data, "image/jpeg"); err != nil {
			slog.Warn("mirror snapshot", "key", key, "error", err)
		}
	}

	return name, nil
}

// List returns metadata for every parseable snapshot on disk, newest first
// by the sanitized timestamp (lexicographic order matches time order).
func (s *SnapshotStore) List() ([]models.SnapshotInfo, error) {
	files, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.SnapshotInfo{}, nil
		}
		return nil, fmt.Errorf("read snapshots dir: %w", err)
	}

	out := []models.SnapshotInfo{}
	for _, f := range files {
		if f.IsDir() {
			continue
		}
		info, ok := ParseSnapshotName(f.Name())
		if !ok {
			continue
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp > out[j].Timestamp
	})
	return out, nil
}

// Path returns the on-disk path for a snapshot filename, rejecting names
// that escape the snapshots directory.
func (s *SnapshotStore) Path(filename string) (string, error) {
	if filename != filepath.Base(filename) {
		return "", fmt.Errorf("%w: invalid snapshot name", models.ErrInvalidInput)
	}
	path := filepath.Join(s.dir, filename)
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("snapshot %s: %w", filename, models.ErrNotFound)
	}
	return path, nil
}
