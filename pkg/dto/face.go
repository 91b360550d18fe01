package dto

import "github.com/your-org/facewatch/internal/models"

// UpdateFaceRequest is a partial profile update; omitted fields keep their
// current values.
type UpdateFaceRequest struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	Position   *string `json:"position,omitempty"`
	Email      *string `json:"email,omitempty"`
	Phone      *string `json:"phone,omitempty"`
}

// FaceResponse describes one enrolled identity. Embeddings never leave the
// server; only their presence is reported.
type FaceResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Department string `json:"department,omitempty"`
	Position   string `json:"position,omitempty"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Embedded   bool   `json:"embedded"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func NewFaceResponse(e models.GalleryEntry) FaceResponse {
	return FaceResponse{
		ID:         e.ID,
		Name:       e.Name,
		Department: e.Department,
		Position:   e.Position,
		Email:      e.Email,
		Phone:      e.Phone,
		Embedded:   e.Embedded(),
		CreatedAt:  e.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  e.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
