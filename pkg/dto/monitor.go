package dto

// StartMonitorRequest begins periodic frame sampling for a camera stream.
type StartMonitorRequest struct {
	Camera     string `json:"camera" binding:"required"`
	StreamURL  string `json:"streamUrl" binding:"required"`
	IntervalMs int    `json:"intervalMs"`
}

// SettingsRequest adjusts the recognition thresholds. Values outside
// [0.3, 0.9] are clamped.
type SettingsRequest struct {
	RecognitionThreshold *float64 `json:"recognitionThreshold,omitempty"`
	DetectionConfidence  *float64 `json:"detectionConfidence,omitempty"`
}

// SettingsResponse reports the thresholds in effect.
type SettingsResponse struct {
	RecognitionThreshold float64 `json:"recognitionThreshold"`
	DetectionConfidence  float64 `json:"detectionConfidence"`
}

// SearchDetectionsRequest looks up archived detections by face image.
type SearchDetectionsRequest struct {
	Threshold float64 `json:"threshold"`
	Limit     int     `json:"limit"`
}
