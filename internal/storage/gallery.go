package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/facewatch/internal/models"
)

// GalleryStore is the durable mapping of person id to profile and embedding.
// The on-disk JSON file is the single source of truth; the whole gallery is
// loaded at startup and rewritten after every mutation.
type GalleryStore struct {
	path string

	mu      sync.RWMutex
	entries map[string]*models.GalleryEntry
}

func NewGalleryStore(path string) *GalleryStore {
	return &GalleryStore{
		path:    path,
		entries: make(map[string]*models.GalleryEntry),
	}
}

// storedEntry is the persisted shape of one gallery entry.
type storedEntry struct {
	Name       string    `json:"name"`
	Department string    `json:"department,omitempty"`
	Position   string    `json:"position,omitempty"`
	Email      string    `json:"email,omitempty"`
	Phone      string    `json:"phone,omitempty"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Load reads the gallery file. A missing file yields an empty gallery.
// Legacy entries (a bare embedding array keyed by name) are normalized into
// the current shape in memory; unreadable entries are skipped with a warning.
func (s *GalleryStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*models.GalleryEntry)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read gallery file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// A corrupt gallery must not block startup.
		slog.Warn("gallery file unreadable, starting with empty gallery",
			"path", s.path, "error", err)
		return nil
	}

	for id, msg := range raw {
		var se storedEntry
		if err := json.Unmarshal(msg, &se); err == nil && se.Name != "" {
			s.entries[id] = &models.GalleryEntry{
				ID: id,
				Profile: models.Profile{
					Name:       se.Name,
					Department: se.Department,
					Position:   se.Position,
					Email:      se.Email,
					Phone:      se.Phone,
				},
				Embedding: se.Embedding,
				CreatedAt: se.CreatedAt,
				UpdatedAt: se.UpdatedAt,
			}
			continue
		}

		// Legacy format: the key is the person's name and the value a bare
		// embedding array.
		var legacy []float32
		if err := json.Unmarshal(msg, &legacy); err == nil {
			now := time.Now().UTC()
			s.entries[id] = &models.GalleryEntry{
				ID:        id,
				Profile:   models.Profile{Name: id},
				Embedding: legacy,
				CreatedAt: now,
				UpdatedAt: now,
			}
			continue
		}

		slog.Warn("skipping unreadable gallery entry", "id", id)
	}

	slog.Info("gallery loaded", "entries", len(s.entries), "path", s.path)
	return nil
}

// Add inserts a new entry. A fresh uuid is assigned when the entry has no id.
// The gallery file is rewritten synchronously before Add returns.
func (s *GalleryStore) Add(profile models.Profile, embedding []float32) (*models.GalleryEntry, error) {
	if profile.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}

	now := time.Now().UTC()
	entry := &models.GalleryEntry{
		ID:        uuid.NewString(),
		Profile:   profile,
		Embedding: embedding,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry
	if err := s.saveLocked(); err != nil {
		delete(s.entries, entry.ID)
		return nil, err
	}
	return cloneEntry(entry), nil
}

// Update merges only the provided fields into an existing entry, preserving
// the embedding and createdAt, and refreshes updatedAt.
func (s *GalleryStore) Update(id string, upd models.ProfileUpdate) (*models.GalleryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("face %s: %w", id, models.ErrNotFound)
	}

	prev := *entry
	if upd.Name != nil && *upd.Name != "" {
		entry.Name = *upd.Name
	}
	if upd.Department != nil {
		entry.Department = *upd.Department
	}
	if upd.Position != nil {
		entry.Position = *upd.Position
	}
	if upd.Email != nil {
		entry.Email = *upd.Email
	}
	if upd.Phone != nil {
		entry.Phone = *upd.Phone
	}
	entry.UpdatedAt = time.Now().UTC()

	if err := s.saveLocked(); err != nil {
		*entry = prev
		return nil, err
	}
	return cloneEntry(entry), nil
}

// ReplaceEmbedding swaps the embedding wholesale (image re-submission).
func (s *GalleryStore) ReplaceEmbedding(id string, embedding []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("face %s: %w", id, models.ErrNotFound)
	}

	entry.Embedding = embedding
	entry.UpdatedAt = time.Now().UTC()
	return s.saveLocked()
}

// Remove deletes an entry and persists the gallery.
func (s *GalleryStore) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("face %s: %w", id, models.ErrNotFound)
	}

	delete(s.entries, id)
	if err := s.saveLocked(); err != nil {
		s.entries[id] = entry
		return err
	}
	return nil
}

// Get returns a copy of the entry, or nil when absent.
func (s *GalleryStore) Get(id string) *models.GalleryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[id]
	if !ok {
		return nil
	}
	return cloneEntry(entry)
}

// List returns a copy of every entry.
func (s *GalleryStore) List() []models.GalleryEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.GalleryEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		out = append(out, *cloneEntry(entry))
	}
	return out
}

// Count returns the number of enrolled faces.
func (s *GalleryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// saveLocked rewrites the gallery file atomically (temp file + rename).
// Callers must hold the write lock.
func (s *GalleryStore) saveLocked() error {
	out := make(map[string]storedEntry, len(s.entries))
	for id, entry := range s.entries {
		out[id] = storedEntry{
			Name:       entry.Name,
			Department: entry.Department,
			Position:   entry.Position,
			Email:      entry.Email,
			Phone:      entry.Phone,
			Embedding:  entry.Embedding,
			CreatedAt:  entry.CreatedAt,
			UpdatedAt:  entry.UpdatedAt,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal gallery: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create gallery dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write gallery temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace gallery file: %w", err)
	}
	return nil
}

func cloneEntry(e *models.GalleryEntry) *models.GalleryEntry {
	out := *e
	if e.Embedding != nil {
		out.Embedding = make([]float32, len(e.Embedding))
		copy(out.Embedding, e.Embedding)
	}
	return &out
}
