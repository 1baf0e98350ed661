package messages

import "time"

// SenderInfo is the display snapshot of the author stored with a message.
type SenderInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email"`
	Picture string `json:"picture,omitempty"`
}

// Message is one chat message. Body travels as "message" on the wire.
type Message struct {
	ID         string      `json:"id"`
	BoardID    string      `json:"boardId"`
	SenderID   string      `json:"senderId"`
	SenderInfo *SenderInfo `json:"senderInfo,omitempty"`
	Body       string      `json:"message"`
	Files      []string    `json:"files,omitempty"`
	SeenBy     []string    `json:"seenBy,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// CreateInput is the createTeamMessage input. ID is client generated (see NewID).
type CreateInput struct {
	ID         string      `json:"id,omitempty"`
	BoardID    string      `json:"boardId"`
	SenderID   string      `json:"senderId"`
	SenderInfo *SenderInfo `json:"senderInfo,omitempty"`
	Body       string      `json:"message"`
	Files      []string    `json:"files,omitempty"`
	SeenBy     []string    `json:"seenBy,omitempty"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// UpdateInput changes the non-nil fields of message ID.
type UpdateInput struct {
	ID        string     `json:"id"`
	BoardID   *string    `json:"boardId,omitempty"`
	SenderID  *string    `json:"senderId,omitempty"`
	Body      *string    `json:"message,omitempty"`
	Files     []string   `json:"files,omitempty"`
	SeenBy    []string   `json:"seenBy,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// connection is the paged list shape returned by the message backend.
type connection struct {
	Items     []Message `json:"items"`
	NextToken *string   `json:"nextToken"`
}
