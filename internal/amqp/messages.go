package amqp

import (
	"encoding/json"
	"time"
)

// ImportCompletedMessage tells the worker that an import landed new
// transactions for an account. The worker fetches the transactions from the
// database; the message only carries the pointer.
type ImportCompletedMessage struct {
	AccountID       string    `json:"accountId"`
	NewTransactions int       `json:"newTransactions"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewImportCompletedMessage builds a message stamped with the current time.
func NewImportCompletedMessage(accountID string, newTransactions int) *ImportCompletedMessage {
	return &ImportCompletedMessage{
		AccountID:       accountID,
		NewTransactions: newTransactions,
		Timestamp:       time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCompletedMessageFromJSON parses a message from JSON bytes.
func ImportCompletedMessageFromJSON(data []byte) (*ImportCompletedMessage, error) {
	var msg ImportCompletedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
