package control

import "time"

// Command is the JSON body of a remote-control message.
type Command struct {
	// ID names the scene or trigger. Unused by scene/stop and stop_all.
	ID string `json:"id,omitempty"`

	// RequestID is echoed in the Ack for correlation.
	RequestID string `json:"request_id,omitempty"`
}

// AckStatus is the outcome of a command.
type AckStatus string

const (
	// AckAccepted means the orchestrator took the command.
	AckAccepted AckStatus = "accepted"

	// AckRejected means the command was not carried out.
	AckRejected AckStatus = "rejected"
)

// Error codes carried in AckError.Code.
const (
	ErrCodeInvalidPayload = "invalid_payload"
	ErrCodeUnknownAction  = "unknown_action"
	ErrCodeMissingID      = "missing_id"
	ErrCodeNotFound       = "not_found"
	ErrCodeShuttingDown   = "shutting_down"
	ErrCodeInternal       = "internal_error"
)

// Ack acknowledges one command on tavernlight/ack/<action>.
type Ack struct {
	RequestID   string    `json:"request_id,omitempty"`
	Action      string    `json:"action"`
	Status      AckStatus `json:"status"`
	ID          string    `json:"id,omitempty"`
	ExecutionID string    `json:"execution_id,omitempty"`
	Error       *AckError `json:"error,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// AckError describes why a command was rejected.
type AckError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
