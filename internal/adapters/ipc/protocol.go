// Package ipc lets dyna commands talk to a running daemon over a Unix socket.
package ipc

import (
	"encoding/json"
	"time"

	"github.com/felixgeelhaar/dyna/internal/domain/updater"
)

// MessageType identifies the type of IPC message.
type MessageType string

const (
	// MessageTypeStatusRequest requests daemon status.
	MessageTypeStatusRequest MessageType = "status_request"
	// MessageTypeUpdateRequest asks the daemon to run a cycle now.
	MessageTypeUpdateRequest MessageType = "update_request"
	// MessageTypeCheckRequest asks whether one plugin has an update.
	MessageTypeCheckRequest MessageType = "check_request"
	// MessageTypeStopRequest requests daemon stop.
	MessageTypeStopRequest MessageType = "stop_request"

	// MessageTypeStatusResponse contains daemon status.
	MessageTypeStatusResponse MessageType = "status_response"
	// MessageTypeUpdateResponse contains a cycle summary.
	MessageTypeUpdateResponse MessageType = "update_response"
	// MessageTypeCheckResponse contains the check result.
	MessageTypeCheckResponse MessageType = "check_response"
	// MessageTypeStopResponse contains stop result.
	MessageTypeStopResponse MessageType = "stop_response"
	// MessageTypeErrorResponse contains error details.
	MessageTypeErrorResponse MessageType = "error_response"
)

// Message is the envelope for all IPC messages.
type Message struct {
	Type      MessageType     `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// NewMessage creates a new message with the given type and payload.
func NewMessage(msgType MessageType, requestID string, payload interface{}) (*Message, error) {
	var payloadBytes json.RawMessage
	if payload != nil {
		var err error
		payloadBytes, err = json.Marshal(payload)
		if err != nil {
			return nil, err
		}
	}

	return &Message{
		Type:      msgType,
		RequestID: requestID,
		Timestamp: time.Now(),
		Payload:   payloadBytes,
	}, nil
}

// StatusResponse is the payload for a status response.
type StatusResponse struct {
	Scheduler updater.SchedulerStatus `json:"scheduler"`
	Plugins   int                     `json:"plugins"`
	Debug     bool                    `json:"debug"`
	Version   string                  `json:"version,omitempty"`
	PID       int                     `json:"pid"`
}

// UpdateRequest is the payload for an update request.
type UpdateRequest struct {
	// TimeoutSeconds bounds the cycle. Zero means the server default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// UpdateResponse summarizes the cycle run for an update request.
type UpdateResponse struct {
	CycleID    string `json:"cycle_id"`
	Checked    int    `json:"checked"`
	Loaded     int    `json:"loaded"`
	UpToDate   int    `json:"up_to_date"`
	DevSkipped int    `json:"dev_skipped"`
	Failed     int    `json:"failed"`
	Restarted  bool   `json:"restarted"`
	Aborted    bool   `json:"aborted"`
	Duration   string `json:"duration"`
	Error      string `json:"error,omitempty"`
}

// CheckRequest is the payload for a check request.
type CheckRequest struct {
	Author string `json:"author"`
	ID     string `json:"id"`
}

// CheckResponse is the payload for a check response.
type CheckResponse struct {
	Key       string `json:"key"`
	Available bool   `json:"available"`
	Tracked   bool   `json:"tracked"`
}

// StopRequest is the payload for a stop request.
type StopRequest struct {
	// TimeoutSeconds is the max time to wait for graceful shutdown
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// StopResponse is the payload for a stop response.
type StopResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse is the payload for an error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes
const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeNotRunning     = "not_running"
	ErrorCodeInternalError  = "internal_error"
)

func newUpdateResponse(report *updater.CycleReport, err error) UpdateResponse {
	var resp UpdateResponse
	if report != nil {
		resp = UpdateResponse{
			CycleID:    report.ID,
			Checked:    len(report.Outcomes),
			Loaded:     report.Count(updater.StateLoaded),
			UpToDate:   report.Count(updater.StateUpToDate),
			DevSkipped: report.Count(updater.StateDevSkipped),
			Failed:     report.Count(updater.StateFailed),
			Restarted:  report.Restarted,
			Aborted:    report.Aborted,
			Duration:   report.Duration().String(),
		}
	}
	if err != nil {
		resp.Error = err.Error()
	}
	return resp
}
