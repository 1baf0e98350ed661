package realtime

import "encoding/json"

// Message types of the AppSync realtime protocol.
const (
	typeConnectionInit  = "connection_init"
	typeConnectionAck   = "connection_ack"
	typeConnectionError = "connection_error"
	typeKeepAlive       = "ka"
	typeStart           = "start"
	typeStartAck        = "start_ack"
	typeData            = "data"
	typeError           = "error"
	typeComplete        = "complete"
	typeStop            = "stop"
)

type message struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type connectionAckPayload struct {
	ConnectionTimeoutMs int64 `json:"connectionTimeoutMs"`
}

// startPayload carries the GraphQL request as a JSON string, as AppSync expects.
type startPayload struct {
	Data       string         `json:"data"`
	Extensions startExtension `json:"extensions"`
}

type startExtension struct {
	Authorization map[string]string `json:"authorization"`
}

type subscriptionRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type dataPayload struct {
	Data json.RawMessage `json:"data"`
}

type errorPayload struct {
	Errors []struct {
		Message   string `json:"message"`
		ErrorType string `json:"errorType"`
	} `json:"errors"`
}

func (p errorPayload) message() string {
	if len(p.Errors) == 0 {
		return "subscription error"
	}
	if p.Errors[0].Message != "" {
		return p.Errors[0].Message
	}
	return p.Errors[0].ErrorType
}
