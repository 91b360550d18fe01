package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/your-org/facewatch/internal/models"
)

// AllCameras is the sentinel camera name that selects every camera's log
// file for a given date.
const AllCameras = "all"

const logDateLayout = "2006-01-02"

// DetectionLog appends detection records to per-camera, per-day JSON files.
// Dates are UTC. Records are append-only and never mutated.
type DetectionLog struct {
	dir string

	mu    sync.Mutex
	locks map[string]*sync.Mutex // per log file
}

func NewDetectionLog(dir string) *DetectionLog {
	return &DetectionLog{
		dir:   dir,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *DetectionLog) fileLock(name string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[name]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[name] = lock
	}
	return lock
}

func (l *DetectionLog) filePath(camera, date string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s_%s.json", camera, date))
}

// Append adds one record to the camera's log file for the record's UTC day.
// The read-modify-write is serialized per file and the rewrite is atomic.
func (l *DetectionLog) Append(entry models.DetectionLogEntry) error {
	date := entry.Timestamp.UTC().Format(logDateLayout)
	path := l.filePath(entry.Camera, date)

	lock := l.fileLock(path)
	lock.Lock()
	defer lock.Unlock()

	entries, err := readLogFile(path)
	if err != nil {
		slog.Warn("unreadable detection log, starting fresh", "path", path, "error", err)
		entries = nil
	}
	entries = append(entries, entry)

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal detection log: %w", err)
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("create logs dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write detection log: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace detection log: %w", err)
	}
	return nil
}

// GetLogs returns the day's records for one camera, or for camera "all" the
// union across every camera's matching log file sorted by timestamp
// descending. A missing log file yields an empty list.
func (l *DetectionLog) GetLogs(camera, date string) ([]models.DetectionLogEntry, error) {
	if _, err := time.Parse(logDateLayout, date); err != nil {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", models.ErrInvalidInput)
	}

	if camera != AllCameras {
		entries, err := readLogFile(l.filePath(camera, date))
		if err != nil {
			slog.Warn("read detection log", "camera", camera, "date", date, "error", err)
			return []models.DetectionLogEntry{}, nil
		}
		return entries, nil
	}

	files, err := os.ReadDir(l.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.DetectionLogEntry{}, nil
		}
		return nil, fmt.Errorf("read logs dir: %w", err)
	}

	suffix := "_" + date + ".json"
	all := []models.DetectionLogEntry{}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), suffix) {
			continue
		}
		entries, err := readLogFile(filepath.Join(l.dir, f.Name()))
		if err != nil {
			slog.Warn("skipping unreadable detection log", "file", f.Name(), "error", err)
			continue
		}
		all = append(all, entries...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.After(all[j].Timestamp)
	})
	return all, nil
}

func readLogFile(path string) ([]models.DetectionLogEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []models.DetectionLogEntry{}, nil
		}
		return nil, err
	}

	var entries []models.DetectionLogEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse detection log %s: %w", path, err)
	}
	return entries, nil
}
