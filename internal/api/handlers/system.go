package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/internal/queue"
	"github.com/your-org/facewatch/internal/storage"
)

// SystemHandler serves liveness and readiness. The optional backends are
// nil when not configured and are skipped in the readiness checks.
type SystemHandler struct {
	svc      *facerec.Service
	archive  *storage.DetectionArchive
	minio    *storage.MinIOStore
	producer *queue.Producer
}

func NewSystemHandler(svc *facerec.Service, archive *storage.DetectionArchive, minio *storage.MinIOStore, producer *queue.Producer) *SystemHandler {
	return &SystemHandler{svc: svc, archive: archive, minio: minio, producer: producer}
}

func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *SystemHandler) Readyz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if h.svc.Status().Initialized {
		checks["recognition"] = "ok"
	} else {
		checks["recognition"] = "not initialized"
		healthy = false
	}

	if h.archive != nil {
		if err := h.archive.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			healthy = false
		} else {
			checks["postgres"] = "ok"
		}
	}

	if h.minio != nil {
		if err := h.minio.Ping(ctx); err != nil {
			checks["minio"] = err.Error()
			healthy = false
		} else {
			checks["minio"] = "ok"
		}
	}

	if h.producer != nil {
		if err := h.producer.Ping(); err != nil {
			checks["nats"] = err.Error()
			healthy = false
		} else {
			checks["nats"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": map[bool]string{true: "ready", false: "not ready"}[healthy],
		"checks": checks,
	})
}
