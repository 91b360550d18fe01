package models

import "time"

// UnknownName is the sentinel identity for embeddings that match no gallery
// entry. It is never a valid gallery name.
const UnknownName = "Unknown"

// Profile holds the editable identity fields of a gallery entry.
type Profile struct {
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
}

// ProfileUpdate is a partial profile change; nil fields are left untouched.
type ProfileUpdate struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// GalleryEntry is one enrolled identity: profile fields plus the face
// embedding. Entries with a nil embedding were enrolled while the embedder
// was unavailable and are excluded from matching.
type GalleryEntry struct {
	ID string `json:"id"`
	Profile
	Embedding []float32 `json:"embedding,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Embedded reports whether the entry carries a usable embedding.
func (e *GalleryEntry) Embedded() bool {
	return len(e.Embedding) > 0
}

// FaceBox is a detected face in source-frame pixel coordinates.
type FaceBox struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float32 `json:"confidence"`
}

// Identity is a match result. Confidence is the cosine similarity against the
// matched gallery embedding, or 0 for Unknown.
type Identity struct {
	Name       string  `json:"name"`
	Confidence float32 `json:"confidence"`
	UserID     string  `json:"user_id,omitempty"`
}

// Unknown returns the no-match sentinel identity.
func Unknown() Identity {
	return Identity{Name: UnknownName, Confidence: 0}
}

// IsUnknown reports whether the identity is the no-match sentinel.
func (i Identity) IsUnknown() bool {
	return i.Name == UnknownName
}

// DetectionLogEntry is one appended record in a per-camera, per-day log file.
type DetectionLogEntry struct {
	Timestamp   time.Time `json:"timestamp"`
	Camera      string    `json:"camera"`
	Identity    string    `json:"identity"`
	Confidence  float32   `json:"confidence"`
	BoundingBox FaceBox   `json:"boundingBox"`
}

// DetectionEvent is the payload fanned out to WebSocket clients, NATS and the
// optional Postgres archive for each processed face.
type DetectionEvent struct {
	Camera      string    `json:"camera"`
	Timestamp   time.Time `json:"timestamp"`
	Identity    Identity  `json:"identity"`
	BoundingBox FaceBox   `json:"bounding_box"`
	Snapshot    string    `json:"snapshot,omitempty"`
	Embedding   []float32 `json:"-"`
}

// SnapshotInfo is metadata recovered from a snapshot filename.
type SnapshotInfo struct {
	Filename  string `json:"filename"`
	Camera    string `json:"camera"`
	Timestamp string `json:"timestamp"`
	Identity  string `json:"identity"`
	FaceIndex int    `json:"face_index"`
}
