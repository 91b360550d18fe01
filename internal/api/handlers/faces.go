package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/your-org/facewatch/internal/facerec"
	"github.com/your-org/facewatch/internal/models"
	"github.com/your-org/facewatch/pkg/dto"
)

type FaceHandler struct {
	svc *facerec.Service
}

func NewFaceHandler(svc *facerec.Service) *FaceHandler {
	return &FaceHandler{svc: svc}
}

// Create enrolls a known face from a multipart form: an "image" file plus
// profile fields.
func (h *FaceHandler) Create(c *gin.Context) {
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

	profile := models.Profile{
		Name:       c.PostForm("name"),
		Department: c.PostForm("department"),
		Position:   c.PostForm("position"),
		Email:      c.PostForm("email"),
		Phone:      c.PostForm("phone"),
	}

	entry, err := h.svc.AddKnownFace(profile, imageData)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.NewFaceResponse(*entry))
}

func (h *FaceHandler) List(c *gin.Context) {
	entries := h.svc.ListKnownFaces()
	resp := make([]dto.FaceResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, dto.NewFaceResponse(e))
	}
	c.JSON(http.StatusOK, gin.H{"faces": resp, "total": len(resp)})
}

func (h *FaceHandler) Get(c *gin.Context) {
	entry, err := h.svc.GetKnownFace(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewFaceResponse(*entry))
}

func (h *FaceHandler) Update(c *gin.Context) {
	var req dto.UpdateFaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.svc.UpdateKnownFace(c.Param("id"), models.ProfileUpdate{
		Name:       req.Name,
		Department: req.Department,
		Position:   req.Position,
		Email:      req.Email,
		Phone:      req.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.NewFaceResponse(*entry))
}

func (h *FaceHandler) Delete(c *gin.Context) {
	if err := h.svc.RemoveKnownFace(c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
