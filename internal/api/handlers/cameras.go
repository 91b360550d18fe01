package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facewatch/internal/mediamtx"
	"github.com/your-org/facewatch/pkg/dto"
)

type CameraHandler struct {
	editor *mediamtx.Editor
}

func NewCameraHandler(editor *mediamtx.Editor) *CameraHandler {
	return &CameraHandler{editor: editor}
}

// AddPath registers an RTSP camera with the media server config. The media
// server picks the change up on its next restart.
func (h *CameraHandler) AddPath(c *gin.Context) {
	var req dto.AddCameraPathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	path, err := h.editor.AddRTSPPath(req.Name, req.RTSPURL)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, path)
}

func (h *CameraHandler) ListPaths(c *gin.Context) {
	paths, err := h.editor.ListPaths()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"paths": paths, "total": len(paths)})
}

func (h *CameraHandler) RemovePath(c *gin.Context) {
	if err := h.editor.RemovePath(c.Param("name")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
