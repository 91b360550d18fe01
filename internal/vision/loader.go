package vision

import (
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// Candidate model filenames, tried in order. The first file that exists and
// loads wins for its role.
var (
	detectorCandidates = []string{"det_10g.onnx", "2d106det.onnx", "scrfd_2.5g_bnkps.onnx"}
	embedderCandidates = []string{"w600k_r50.onnx", "1k3d68.onnx", "arcface_r50_v1.onnx"}
)

var (
	runtimeOnce sync.Once
	runtimeErr  error
)

// InitRuntime initializes the ONNX Runtime environment once per process.
func InitRuntime() error {
	runtimeOnce.Do(func() {
		ort.SetSharedLibraryPath(onnxLibPath())
		runtimeErr = ort.InitializeEnvironment()
	})
	return runtimeErr
}

func onnxLibPath() string {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}

// ModelSet holds whichever models could be loaded. Either field may be nil;
// callers degrade to no-op behavior for the missing capability.
type ModelSet struct {
	Detector *Detector
	Embedder *Embedder
}

// HasDetector reports whether a detection model is loaded.
func (m *ModelSet) HasDetector() bool { return m != nil && m.Detector != nil }

// HasEmbedder reports whether an embedding model is loaded.
func (m *ModelSet) HasEmbedder() bool { return m != nil && m.Embedder != nil }

// Close releases all loaded ONNX sessions.
func (m *ModelSet) Close() {
	if m == nil {
		return
	}
	if m.Detector != nil {
		m.Detector.Close()
		m.Detector = nil
	}
	if m.Embedder != nil {
		m.Embedder.Close()
		m.Embedder = nil
	}
}

// LoadModels tries each candidate file under modelsDir for the detector and
// embedder roles. A role with no loadable candidate is left nil; this is not
// an error.
func LoadModels(modelsDir string, detectionThreshold float32) *ModelSet {
	set := &ModelSet{}

	if err := InitRuntime(); err != nil {
		slog.Warn("onnx runtime unavailable, running without models", "error", err)
		return set
	}

	for _, name := range detectorCandidates {
		path := filepath.Join(modelsDir, name)
		if !fileExists(path) {
			continue
		}
		det, err := NewDetector(path, detectionThreshold)
		if err != nil {
			slog.Warn("load detection model failed", "model", name, "error", err)
			continue
		}
		slog.Info("detection model loaded", "model", name)
		set.Detector = det
		break
	}
	if set.Detector == nil {
		slog.Warn("no detection model found", "dir", modelsDir, "candidates", detectorCandidates)
	}

	for _, name := range embedderCandidates {
		path := filepath.Join(modelsDir, name)
		if !fileExists(path) {
			continue
		}
		emb, err := NewEmbedder(path)
		if err != nil {
			slog.Warn("load embedding model failed", "model", name, "error", err)
			continue
		}
		slog.Info("embedding model loaded", "model", name)
		set.Embedder = emb
		break
	}
	if set.Embedder == nil {
		slog.Warn("no embedding model found", "dir", modelsDir, "candidates", embedderCandidates)
	}

	return set
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
