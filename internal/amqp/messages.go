package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseCreatedMessage announces a newly recorded expense so downstream
// consumers (the summary notifier) can react without polling the store.
type ExpenseCreatedMessage struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Month       string    `json:"month"`
	ImageHash   string    `json:"image_hash"`
	UploadedBy  string    `json:"uploaded_by"`
	Timestamp   time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseCreatedMessageFromJSON creates a message from JSON bytes
func ExpenseCreatedMessageFromJSON(data []byte) (*ExpenseCreatedMessage, error) {
	var msg ExpenseCreatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
