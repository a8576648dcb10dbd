package http

import (
	"encoding/json"
	"net/http"
)

// Gate rejection codes; the only codes clients ever see from the
// detection path
const (
	CodeIPBlocked         = "IP_BLOCKED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeThreatDetected    = "THREAT_DETECTED"
)

// GateResponse is the terminal body for a request rejected by the
// detection pipeline
type GateResponse struct {
	Message    string `json:"message"`
	Code       string `json:"code"`
	ThreatType string `json:"threatType,omitempty"`
}

// WriteGateReject writes a detection-pipeline rejection. Internal details
// never leak here; message is always a fixed client-safe string.
func WriteGateReject(w http.ResponseWriter, statusCode int, code, message, threatType string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := GateResponse{
		Message:    message,
		Code:       code,
		ThreatType: threatType,
	}

	_ = json.NewEncoder(w).Encode(resp)
}

// WriteJSON writes an arbitrary payload with the given status code
func WriteJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}
