package models

// ClientFrameMessage is the only frame type a chat socket client sends
const ClientFrameMessage = "message"

// Reply statuses carried by ServerFrame
const (
	StatusStreaming = "streaming"
	StatusComplete  = "complete"
	StatusError     = "error"
	StatusBusy      = "busy"
)

// ClientFrame is a message sent by the client over the chat socket
type ClientFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ServerFrame is one update of an assistant reply. Streaming frames carry a
// delta; the complete frame carries the whole reply and its message id.
type ServerFrame struct {
	RequestID string `json:"request_id"`
	MessageID string `json:"message_id,omitempty"`
	Content   string `json:"content"`
	Status    string `json:"status"`
}
