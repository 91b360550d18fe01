package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/pkg/dto"
)

type MonitorHandler struct {
	svc *facerec.Service
}

func NewMonitorHandler(svc *facerec.Service) *MonitorHandler {
	return &MonitorHandler{svc: svc}
}

// Initialize loads (or reloads) the models and the gallery.
func (h *MonitorHandler) Initialize(c *gin.Context) {
	if err := h.svc.Initialize(context.Background()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.svc.Status())
}

func (h *MonitorHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Status())
}

// UpdateSettings adjusts the recognition thresholds and returns the values
// in effect after clamping.
func (h *MonitorHandler) UpdateSettings(c *gin.Context) {
	var req dto.SettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if req.RecognitionThreshold != nil {
		h.svc.SetRecognitionThreshold(*req.RecognitionThreshold)
	}
	if req.DetectionConfidence != nil {
		h.svc.SetDetectionConfidence(*req.DetectionConfidence)
	}

	c.JSON(http.StatusOK, dto.SettingsResponse{
		RecognitionThreshold: h.svc.RecognitionThreshold(),
		DetectionConfidence:  h.svc.DetectionConfidence(),
	})
}

func (h *MonitorHandler) Start(c *gin.Context) {
	var req dto.StartMonitorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.svc.StartMonitoring(req.Camera, req.StreamURL, req.IntervalMs); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"monitoring": true, "camera": req.Camera})
}

func (h *MonitorHandler) List(c *gin.Context) {
	cameras := h.svc.ActiveMonitors()
	c.JSON(http.StatusOK, gin.H{"cameras": cameras, "total": len(cameras)})
}

func (h *MonitorHandler) Stop(c *gin.Context) {
	camera := c.Param("camera")
	if err := h.svc.StopMonitoring(camera); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"monitoring": false, "camera": camera})
}
