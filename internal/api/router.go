package api

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/your-org/facewatch/internal/api/handlers"
	"github.com/your-org/facewatch/internal/api/ws"
	"github.com/your-org/facewatch/internal/auth"
	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/internal/mediamtx"
	"github.com/your-org/facewatch/internal/queue"
	"github.com/your-org/facewatch/internal/storage"
)

type RouterConfig struct {
	APIKey  string
	Service *facerec.Service
	Editor  *mediamtx.Editor
	Hub     *ws.Hub

	// Optional backends; nil when not configured.
	Archive  *storage.DetectionArchive
	MinIO    *storage.MinIOStore
	Producer *queue.Producer
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(LoggingMiddleware())
	r.Use(cors.Default())

	// System endpoints (no auth)
	systemH := handlers.NewSystemHandler(cfg.Service, cfg.Archive, cfg.MinIO, cfg.Producer)
	r.GET("/healthz", systemH.Healthz)
	r.GET("/readyz", systemH.Readyz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 (with auth)
	v1 := r.Group("/v1")
	v1.Use(auth.APIKeyMiddleware(cfg.APIKey))

	// WebSocket
	v1.GET("/ws", cfg.Hub.HandleWS)

	// Recognition engine
	monitorH := handlers.NewMonitorHandler(cfg.Service)
	v1.POST("/recognition/initialize", monitorH.Initialize)
	v1.GET("/recognition/status", monitorH.Status)
	v1.PUT("/recognition/settings", monitorH.UpdateSettings)

	// Known faces
	faceH := handlers.NewFaceHandler(cfg.Service)
	v1.POST("/faces", faceH.Create)
	v1.GET("/faces", faceH.List)
	v1.GET("/faces/:id", faceH.Get)
	v1.PUT("/faces/:id", faceH.Update)
	v1.DELETE("/faces/:id", faceH.Delete)

	// Camera monitors
	v1.POST("/monitors", monitorH.Start)
	v1.GET("/monitors", monitorH.List)
	v1.DELETE("/monitors/:camera", monitorH.Stop)

	// Detections & snapshots
	detH := handlers.NewDetectionHandler(cfg.Service, cfg.Archive)
	v1.GET("/detections", detH.List)
	v1.POST("/detections/search", detH.Search)
	v1.GET("/snapshots", detH.ListSnapshots)
	v1.GET("/snapshots/:filename", detH.ServeSnapshot)

	// Media server paths
	cameraH := handlers.NewCameraHandler(cfg.Editor)
	v1.POST("/cameras/paths", cameraH.AddPath)
	v1.GET("/cameras/paths", cameraH.ListPaths)
	v1.DELETE("/cameras/paths/:name", cameraH.RemovePath)

	return r
}
