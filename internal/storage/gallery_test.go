package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/facewatch/internal/models"
)

func newTestGallery(t *testing.T) *GalleryStore {
	t.Helper()
	return NewGalleryStore(filepath.Join(t.TempDir(), "known_faces.json"))
}

func TestGalleryAddAndReload(t *testing.T) {
	g := newTestGallery(t)

	entry, err := g.Add(models.Profile{
		Name:       "Alice Johnson",
		Department: "Security",
		Email:      "alice@example.com",
	}, []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)
	require.NotEmpty(t, entry.ID)

	// A fresh store reading the same file sees the entry.
	g2 := NewGalleryStore(g.path)
	require.NoError(t, g2.Load())

	got := g2.Get(entry.ID)
	require.NotNil(t, got)
	assert.Equal(t, "Alice Johnson", got.Name)
	assert.Equal(t, "Security", got.Department)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Embedding)
	assert.True(t, got.Embedded())
}

func TestGalleryAddRequiresName(t *testing.T) {
	g := newTestGallery(t)

	_, err := g.Add(models.Profile{}, []float32{1})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestGalleryAddWithoutEmbedding(t *testing.T) {
	g := newTestGallery(t)

	entry, err := g.Add(models.Profile{Name: "Bob"}, nil)
	require.NoError(t, err)
	assert.False(t, entry.Embedded())
}

func TestGalleryLoadMissingFile(t *testing.T) {
	g := newTestGallery(t)
	require.NoError(t, g.Load())
	assert.Equal(t, 0, g.Count())
}

func TestGalleryLoadLegacyFormat(t *testing.T) {
	// Older deployments stored a bare embedding array keyed by name.
	path := filepath.Join(t.TempDir(), "known_faces.json")
	legacy := `{
		"Carol": [0.5, 0.5, 0.0],
		"Dave Smith": [0.0, 1.0, 0.0]
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	g := NewGalleryStore(path)
	require.NoError(t, g.Load())
	require.Equal(t, 2, g.Count())

	carol := g.Get("Carol")
	require.NotNil(t, carol)
	assert.Equal(t, "Carol", carol.Name)
	assert.Equal(t, []float32{0.5, 0.5, 0}, carol.Embedding)
	assert.False(t, carol.CreatedAt.IsZero())
}

func TestGalleryLoadSkipsUnreadableEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "known_faces.json")
	mixed := `{
		"bad": "not-an-entry",
		"id-1": {"name": "Erin", "embedding": [1.0]}
	}`
	require.NoError(t, os.WriteFile(path, []byte(mixed), 0o644))

	g := NewGalleryStore(path)
	require.NoError(t, g.Load())
	assert.Equal(t, 1, g.Count())
	assert.NotNil(t, g.Get("id-1"))
}

func TestGalleryLoadCorruptFile(t *testing.T) {
	// Whole-file corruption degrades to an empty gallery; it must never
	// fail startup.
	path := filepath.Join(t.TempDir(), "known_faces.json")
	require.NoError(t, os.WriteFile(path, []byte("{corrupt"), 0o644))

	g := NewGalleryStore(path)
	require.NoError(t, g.Load())
	assert.Equal(t, 0, g.Count())

	// The store stays usable afterwards.
	_, err := g.Add(models.Profile{Name: "Alice"}, []float32{1})
	require.NoError(t, err)
	assert.Equal(t, 1, g.Count())
}

func TestGalleryUpdatePartial(t *testing.T) {
	g := newTestGallery(t)
	entry, err := g.Add(models.Profile{Name: "Frank", Department: "Ops"}, []float32{1, 0})
	require.NoError(t, err)

	position := "Lead"
	updated, err := g.Update(entry.ID, models.ProfileUpdate{Position: &position})
	require.NoError(t, err)

	// Untouched fields and the embedding survive.
	assert.Equal(t, "Frank", updated.Name)
	assert.Equal(t, "Ops", updated.Department)
	assert.Equal(t, "Lead", updated.Position)
	assert.Equal(t, []float32{1, 0}, updated.Embedding)
	assert.Equal(t, entry.CreatedAt, updated.CreatedAt)
}

func TestGalleryUpdateMissing(t *testing.T) {
	g := newTestGallery(t)
	name := "Nobody"
	_, err := g.Update("missing-id", models.ProfileUpdate{Name: &name})
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGalleryReplaceEmbedding(t *testing.T) {
	g := newTestGallery(t)
	entry, err := g.Add(models.Profile{Name: "Grace"}, nil)
	require.NoError(t, err)

	require.NoError(t, g.ReplaceEmbedding(entry.ID, []float32{0, 1}))

	got := g.Get(entry.ID)
	require.NotNil(t, got)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
}

func TestGalleryRemove(t *testing.T) {
	g := newTestGallery(t)
	entry, err := g.Add(models.Profile{Name: "Heidi"}, []float32{1})
	require.NoError(t, err)

	require.NoError(t, g.Remove(entry.ID))
	assert.Nil(t, g.Get(entry.ID))

	err = g.Remove(entry.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestGalleryGetReturnsCopy(t *testing.T) {
	g := newTestGallery(t)
	entry, err := g.Add(models.Profile{Name: "Ivan"}, []float32{1, 2})
	require.NoError(t, err)

	got := g.Get(entry.ID)
	got.Embedding[0] = 99

	fresh := g.Get(entry.ID)
	assert.Equal(t, float32(1), fresh.Embedding[0])
}
