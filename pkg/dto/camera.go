package dto

// AddCameraPathRequest registers an RTSP source with the media server.
type AddCameraPathRequest struct {
	Name    string `json:"name" binding:"required"`
	RTSPURL string `json:"rtspUrl" binding:"required"`
}
