package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/internal/storage"
)

type DetectionHandler struct {
	svc     *facerec.Service
	archive *storage.DetectionArchive // nil unless Postgres is configured
}

func NewDetectionHandler(svc *facerec.Service, archive *storage.DetectionArchive) *DetectionHandler {
	return &DetectionHandler{svc: svc, archive: archive}
}

// List returns detection log entries for a camera and date. camera=all
// merges every camera's log for that day; date defaults to today (UTC).
func (h *DetectionHandler) List(c *gin.Context) {
	camera := c.DefaultQuery("camera", storage.AllCameras)
	date := c.DefaultQuery("date", time.Now().UTC().Format("2006-01-02"))

	entries, err := h.svc.GetLogs(camera, date)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"detections": entries, "total": len(entries)})
}

// Search finds archived detections similar to an uploaded face photo.
// Requires the Postgres archive and a loaded embedder.
func (h *DetectionHandler) Search(c *gin.Context) {
	if h.archive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "detection archive not configured"})
		return
	}

	file, _, err := c.Request.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	defer file.Close()

	imageData, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read image: " + err.Error()})
		return
	}

	threshold := 0.5
	if v := c.PostForm("threshold"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil {
			threshold = parsed
		}
	}
	limit := 10
	if v := c.PostForm("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			limit = parsed
		}
	}

	embedding, err := h.svc.EmbedImage(imageData)
	if err != nil {
		writeError(c, err)
		return
	}

	matches, err := h.archive.Search(c.Request.Context(), embedding, threshold, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"matches": matches, "total": len(matches)})
}

// ListSnapshots returns snapshot metadata parsed from the stored filenames,
// newest first.
func (h *DetectionHandler) ListSnapshots(c *gin.Context) {
	snapshots, err := h.svc.ListSnapshots()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"snapshots": snapshots, "total": len(snapshots)})
}

// ServeSnapshot streams one snapshot JPEG by filename.
func (h *DetectionHandler) ServeSnapshot(c *gin.Context) {
	path, err := h.svc.SnapshotPath(c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.File(path)
}
