// Package mediamtx edits a MediaMTX configuration file so cameras added
// through the API become playable WebRTC (WHEP) streams after a restart
// of the media server.
package mediamtx

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/your-org/facewatch/internal/models"
)

const maxPathNameLen = 20

// PathConfig is the per-path stanza written into mediamtx.yml.
type PathConfig struct {
	Source         string `yaml:"source"`
	SourceOnDemand bool   `yaml:"sourceOnDemand"`
	RTSPTransport  string `yaml:"rtspTransport,omitempty"`
}

// CameraPath describes one configured stream path.
type CameraPath struct {
	Name    string `json:"name"`
	Source  string `json:"source"`
	WHEPURL string `json:"whepUrl"`
}

// Editor performs read-modify-write updates of a MediaMTX YAML config.
// All edits rewrite the file atomically; concurrent edits are serialized.
type Editor struct {
	path        string
	whepBaseURL string
	mu          sync.Mutex
}

func NewEditor(configPath, whepBaseURL string) *Editor {
	return &Editor{
		path:        configPath,
		whepBaseURL: strings.TrimRight(whepBaseURL, "/"),
	}
}

// AddRTSPPath registers an RTSP source under a unique path name derived from
// the camera name and returns the path name plus its WHEP playback URL.
func (e *Editor) AddRTSPPath(name, rtspURL string) (CameraPath, error) {
	if !strings.HasPrefix(rtspURL, "rtsp://") {
		return CameraPath{}, fmt.Errorf("%w: source must be an rtsp:// url", models.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.load()
	if err != nil {
		return CameraPath{}, err
	}

	paths, _ := doc["paths"].(map[string]any)
	if paths == nil {
		paths = map[string]any{}
		doc["paths"] = paths
	}

	pathName := uniquePathName(slugify(name), paths)
	paths[pathName] = PathConfig{
		Source:         rtspURL,
		SourceOnDemand: false,
		RTSPTransport:  "tcp",
	}

	if err := e.save(doc); err != nil {
		return CameraPath{}, err
	}

	return CameraPath{
		Name:    pathName,
		Source:  rtspURL,
		WHEPURL: e.whepURL(pathName),
	}, nil
}

// RemovePath deletes a configured path.
func (e *Editor) RemovePath(name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.load()
	if err != nil {
		return err
	}

	paths, _ := doc["paths"].(map[string]any)
	if _, ok := paths[name]; !ok {
		return fmt.Errorf("path %q: %w", name, models.ErrNotFound)
	}
	delete(paths, name)

	return e.save(doc)
}

// ListPaths returns the configured paths sorted by name.
func (e *Editor) ListPaths() ([]CameraPath, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.load()
	if err != nil {
		return nil, err
	}

	paths, _ := doc["paths"].(map[string]any)
	out := make([]CameraPath, 0, len(paths))
	for name, raw := range paths {
		out = append(out, CameraPath{
			Name:    name,
			Source:  pathSource(raw),
			WHEPURL: e.whepURL(name),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (e *Editor) whepURL(pathName string) string {
	return fmt.Sprintf("%s/%s/whep", e.whepBaseURL, pathName)
}

func (e *Editor) load() (map[string]any, error) {
	data, err := os.ReadFile(e.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, fmt.Errorf("read mediamtx config: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse mediamtx config: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return doc, nil
}

func (e *Editor) save(doc map[string]any) error {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal mediamtx config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(e.path), 0o755); err != nil {
		return fmt.Errorf("create mediamtx config dir: %w", err)
	}

	tmp := e.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write mediamtx config: %w", err)
	}
	if err := os.Rename(tmp, e.path); err != nil {
		return fmt.Errorf("replace mediamtx config: %w", err)
	}
	return nil
}

func pathSource(raw any) string {
	switch v := raw.(type) {
	case PathConfig:
		return v.Source
	case map[string]any:
		if s, ok := v["source"].(string); ok {
			return s
		}
	}
	return ""
}

// slugify reduces a display name to lowercase alphanumerics with dashes,
// capped to maxPathNameLen, falling back to "camera" when nothing survives.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if len(slug) > maxPathNameLen {
		slug = strings.Trim(slug[:maxPathNameLen], "-")
	}
	if slug == "" {
		slug = "camera"
	}
	return slug
}

func uniquePathName(base string, paths map[string]any) string {
	if _, taken := paths[base]; !taken {
		return base
	}
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s-%d", base, i)
		if _, taken := paths[candidate]; !taken {
			return candidate
		}
	}
}
