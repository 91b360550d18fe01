// Package facerec is the recognition core: it owns the face gallery, the
// ONNX model sessions and the camera monitors, and runs the sampling cycle
// that turns camera frames into detection log entries and snapshots.
package facerec

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/your-org/facewatch/internal/config"
	"github.com/your-org/facewatch/internal/ingest"
	"github.com/your-org/facewatch/internal/models"
	"github.com/your-org/facewatch/internal/observability"
	"github.com/your-org/facewatch/internal/storage"
	"github.com/your-org/facewatch/internal/vision"
)

const (
	minThreshold = 0.3
	maxThreshold = 0.9
)

// Publisher fans a detection event out to an external consumer. Both the
// NATS producer and the WebSocket hub satisfy this.
type Publisher interface {
	PublishDetection(camera string, ev models.DetectionEvent) error
}

// Archiver persists detection events for later similarity search.
type Archiver interface {
	Insert(ctx context.Context, ev models.DetectionEvent) error
}

// Status is a point-in-time view of the recognition engine.
type Status struct {
	Initialized      bool     `json:"initialized"`
	DetectorLoaded   bool     `json:"detectorLoaded"`
	EmbedderLoaded   bool     `json:"embedderLoaded"`
	ActiveMonitoring []string `json:"activeMonitoring"`
	KnownFaces       int      `json:"knownFaces"`
}

// Options carries the optional backends wired in at startup.
type Options struct {
	Publisher Publisher
	Archive   Archiver

	// OnDetection, when set, is invoked for every processed face after
	// logging. Used to feed the WebSocket hub.
	OnDetection func(ev models.DetectionEvent)
}

// Service implements the recognition pipeline.
type Service struct {
	cfg    config.RecognitionConfig
	opts   Options
	client *http.Client

	gallery   *storage.GalleryStore
	detlog    *storage.DetectionLog
	snapshots *storage.SnapshotStore
	manager   *ingest.Manager

	// infMu serializes all ONNX inference; the sessions are not safe for
	// concurrent Run calls.
	infMu  sync.Mutex
	models *vision.ModelSet

	mu                  sync.RWMutex
	initialized         bool
	detectionConfidence float64
	recognitionThresh   float64
}

func NewService(cfg config.RecognitionConfig, gallery *storage.GalleryStore, detlog *storage.DetectionLog, snapshots *storage.SnapshotStore, opts Options) *Service {
	s := &Service{
		cfg:                 cfg,
		opts:                opts,
		client:              &http.Client{Timeout: cfg.CaptureTimeout},
		gallery:             gallery,
		detlog:              detlog,
		snapshots:           snapshots,
		detectionConfidence: clampThreshold(cfg.DetectionConfidence),
		recognitionThresh:   clampThreshold(cfg.RecognitionThresh),
	}
	s.manager = ingest.NewManager(s.processCycle)
	return s
}

// Initialize loads the ONNX models and the gallery from disk. It is safe to
// call repeatedly; a second call reloads both.
func (s *Service) Initialize(ctx context.Context) error {
	if err := s.gallery.Load(); err != nil {
		return fmt.Errorf("load gallery: %w", err)
	}

	set := vision.LoadModels(s.cfg.ModelsDir, float32(s.DetectionConfidence()))

	s.mu.Lock()
	old := s.models
	s.models = set
	s.initialized = true
	s.mu.Unlock()

	if old != nil {
		old.Close()
	}

	slog.Info("recognition engine initialized",
		"detector", set.HasDetector(),
		"embedder", set.HasEmbedder(),
		"known_faces", s.gallery.Count(),
	)
	return nil
}

// Shutdown stops all monitors and releases model sessions.
func (s *Service) Shutdown() {
	s.manager.StopAll()

	s.mu.Lock()
	set := s.models
	s.models = nil
	s.initialized = false
	s.mu.Unlock()

	if set != nil {
		set.Close()
	}
}

func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Initialized:      s.initialized,
		DetectorLoaded:   s.models.HasDetector(),
		EmbedderLoaded:   s.models.HasEmbedder(),
		ActiveMonitoring: s.manager.Active(),
		KnownFaces:       s.gallery.Count(),
	}
}

// StartMonitoring begins sampling frames from a camera. intervalMs <= 0
// falls back to the configured default.
func (s *Service) StartMonitoring(camera, streamURL string, intervalMs int) error {
	if !s.ready() {
		return fmt.Errorf("recognition engine not initialized: %w", models.ErrCapabilityUnavailable)
	}
	if intervalMs <= 0 {
		intervalMs = s.cfg.DefaultIntervalMs
	}
	return s.manager.Start(camera, streamURL, time.Duration(intervalMs)*time.Millisecond)
}

func (s *Service) StopMonitoring(camera string) error {
	return s.manager.Stop(camera)
}

func (s *Service) ActiveMonitors() []string {
	return s.manager.Active()
}

// AddKnownFace enrolls a new identity from a face photo. When the embedder
// is unavailable the entry is still created, without an embedding, and is
// skipped during matching until re-enrolled.
func (s *Service) AddKnownFace(profile models.Profile, imageData []byte) (*models.GalleryEntry, error) {
	if profile.Name == "" {
		return nil, fmt.Errorf("%w: name is required", models.ErrInvalidInput)
	}
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: image is required", models.ErrInvalidInput)
	}

	img, err := vision.DecodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}

	embedding, err := s.embedEnrollment(img)
	if err != nil {
		return nil, err
	}
	if embedding == nil {
		slog.Warn("enrolling without embedding, embedder unavailable", "name", profile.Name)
	}

	return s.gallery.Add(profile, embedding)
}

// embedEnrollment produces the embedding for an enrollment photo. If a
// detector is loaded the highest-confidence face is cropped first; otherwise
// the full image is embedded. Returns nil when no embedder is loaded.
func (s *Service) embedEnrollment(img image.Image) ([]float32, error) {
	set := s.modelSet()
	if !set.HasEmbedder() {
		return nil, nil
	}

	crop := img
	if set.HasDetector() {
		boxes, err := s.detect(set, img)
		if err != nil {
			return nil, fmt.Errorf("detect enrollment face: %w", err)
		}
		if len(boxes) == 0 {
			return nil, fmt.Errorf("%w: no face found in image", models.ErrInvalidInput)
		}
		best := boxes[0]
		for _, b := range boxes[1:] {
			if b.Confidence > best.Confidence {
				best = b
			}
		}
		crop = vision.CropFace(img, best)
		if crop == nil {
			return nil, fmt.Errorf("%w: face box outside image", models.ErrInvalidInput)
		}
	}

	embedding, err := s.embed(set, crop)
	if err != nil {
		return nil, fmt.Errorf("embed enrollment face: %w", err)
	}
	return embedding, nil
}

// EmbedImage extracts an embedding from a face photo, for similarity search
// against archived detections.
func (s *Service) EmbedImage(imageData []byte) ([]float32, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("%w: image is required", models.ErrInvalidInput)
	}
	if !s.modelSet().HasEmbedder() {
		return nil, fmt.Errorf("embedder not loaded: %w", models.ErrCapabilityUnavailable)
	}

	img, err := vision.DecodeImage(imageData)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	return s.embedEnrollment(img)
}

func (s *Service) UpdateKnownFace(id string, upd models.ProfileUpdate) (*models.GalleryEntry, error) {
	return s.gallery.Update(id, upd)
}

func (s *Service) RemoveKnownFace(id string) error {
	return s.gallery.Remove(id)
}

func (s *Service) ListKnownFaces() []models.GalleryEntry {
	return s.gallery.List()
}

func (s *Service) GetKnownFace(id string) (*models.GalleryEntry, error) {
	entry := s.gallery.Get(id)
	if entry == nil {
		return nil, fmt.Errorf("face %q: %w", id, models.ErrNotFound)
	}
	return entry, nil
}

func (s *Service) GetLogs(camera, date string) ([]models.DetectionLogEntry, error) {
	return s.detlog.GetLogs(camera, date)
}

func (s *Service) ListSnapshots() ([]models.SnapshotInfo, error) {
	return s.snapshots.List()
}

func (s *Service) SnapshotPath(filename string) (string, error) {
	return s.snapshots.Path(filename)
}

// SetRecognitionThreshold updates the matching threshold, clamped to
// [0.3, 0.9].
func (s *Service) SetRecognitionThreshold(v float64) float64 {
	clamped := clampThreshold(v)
	s.mu.Lock()
	s.recognitionThresh = clamped
	s.mu.Unlock()
	return clamped
}

// SetDetectionConfidence updates the detector threshold, clamped to
// [0.3, 0.9].
func (s *Service) SetDetectionConfidence(v float64) float64 {
	clamped := clampThreshold(v)
	s.mu.Lock()
	s.detectionConfidence = clamped
	set := s.models
	s.mu.Unlock()

	if set.HasDetector() {
		set.Detector.SetThreshold(float32(clamped))
	}
	return clamped
}

func (s *Service) RecognitionThreshold() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recognitionThresh
}

func (s *Service) DetectionConfidence() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detectionConfidence
}

func (s *Service) ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *Service) modelSet() *vision.ModelSet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models
}

// recognize matches an embedding against the gallery. The best similarity
// must strictly exceed the recognition threshold; ties keep the first entry
// at the maximum. Entries without embeddings are skipped.
func (s *Service) recognize(embedding []float32) models.Identity {
	if len(embedding) == 0 {
		return models.Unknown()
	}

	threshold := float32(s.RecognitionThreshold())

	var (
		bestScore float32 = -1
		bestEntry *models.GalleryEntry
	)
	for _, entry := range s.gallery.List() {
		if !entry.Embedded() {
			continue
		}
		score := vision.CosineSimilarity(embedding, entry.Embedding)
		if score > bestScore {
			bestScore = score
			e := entry
			bestEntry = &e
		}
	}

	if bestEntry == nil || bestScore <= threshold {
		return models.Unknown()
	}
	return models.Identity{
		Name:       bestEntry.Name,
		Confidence: bestScore,
		UserID:     bestEntry.ID,
	}
}

// processCycle is one monitoring tick: capture a frame, detect faces, match
// each against the gallery, log, emit and snapshot known faces.
func (s *Service) processCycle(ctx context.Context, camera, streamURL string) {
	captureCtx, cancel := context.WithTimeout(ctx, s.cfg.CaptureTimeout)
	defer cancel()

	frame, err := ingest.CaptureFrame(captureCtx, s.client, streamURL)
	if err != nil {
		observability.CycleFailures.WithLabelValues(camera).Inc()
		slog.Warn("frame capture failed", "camera", camera, "error", err)
		return
	}
	observability.FramesCaptured.WithLabelValues(camera).Inc()

	set := s.modelSet()
	if !set.HasDetector() {
		// Without a detector there are no detections; the monitor keeps
		// running in case models are loaded later.
		return
	}

	boxes, err := s.detect(set, frame)
	if err != nil {
		observability.CycleFailures.WithLabelValues(camera).Inc()
		slog.Error("face detection failed", "camera", camera, "error", err)
		return
	}
	if len(boxes) == 0 {
		return
	}
	observability.FacesDetected.WithLabelValues(camera).Add(float64(len(boxes)))

	now := time.Now()
	for i, box := range boxes {
		identity := models.Unknown()
		var embedding []float32

		if set.HasEmbedder() {
			if crop := vision.CropFace(frame, box); crop != nil {
				embedding, err = s.embed(set, crop)
				if err != nil {
					slog.Warn("embedding failed", "camera", camera, "face", i, "error", err)
				} else {
					identity = s.recognize(embedding)
				}
			}
		}

		ev := models.DetectionEvent{
			Camera:      camera,
			Timestamp:   now,
			Identity:    identity,
			BoundingBox: box,
			Embedding:   embedding,
		}

		if !identity.IsUnknown() {
			observability.FacesRecognized.WithLabelValues(camera).Inc()
			name, err := s.snapshots.Save(ctx, camera, frame, box, identity, i, now)
			if err != nil {
				slog.Warn("snapshot save failed", "camera", camera, "error", err)
			} else {
				ev.Snapshot = name
			}
		}

		entry := models.DetectionLogEntry{
			Timestamp:   now,
			Camera:      camera,
			Identity:    identity.Name,
			Confidence:  identity.Confidence,
			BoundingBox: box,
		}
		if err := s.detlog.Append(entry); err != nil {
			slog.Error("detection log append failed", "camera", camera, "error", err)
		}

		s.emit(ctx, camera, ev)
	}
}

func (s *Service) emit(ctx context.Context, camera string, ev models.DetectionEvent) {
	if s.opts.OnDetection != nil {
		s.opts.OnDetection(ev)
	}
	if s.opts.Publisher != nil {
		if err := s.opts.Publisher.PublishDetection(camera, ev); err != nil {
			slog.Warn("detection publish failed", "camera", camera, "error", err)
		}
	}
	if s.opts.Archive != nil {
		if err := s.opts.Archive.Insert(ctx, ev); err != nil {
			slog.Warn("detection archive failed", "camera", camera, "error", err)
		}
	}
}

func (s *Service) detect(set *vision.ModelSet, img image.Image) ([]models.FaceBox, error) {
	s.infMu.Lock()
	defer s.infMu.Unlock()

	start := time.Now()
	boxes, err := set.Detector.Detect(img)
	observability.InferenceDuration.WithLabelValues("detect").Observe(time.Since(start).Seconds())
	return boxes, err
}

func (s *Service) embed(set *vision.ModelSet, crop image.Image) ([]float32, error) {
	s.infMu.Lock()
	defer s.infMu.Unlock()

	start := time.Now()
	embedding, err := set.Embedder.Extract(crop)
	observability.InferenceDuration.WithLabelValues("embed").Observe(time.Since(start).Seconds())
	return embedding, err
}

func clampThreshold(v float64) float64 {
	if v < minThreshold {
		return minThreshold
	}
	if v > maxThreshold {
		return maxThreshold
	}
	return v
}
