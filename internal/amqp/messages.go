package amqp

import (
	"encoding/json"
	"time"
)

const (
	EventCreated EventType = "transaction.created"
	EventUpdated EventType = "transaction.updated"
	EventDeleted EventType = "transaction.deleted"
)

type EventType string

// TransactionEvent carries a full snapshot of the transaction at the moment
// of the mutation, so consumers never need to read the database. Deleted
// transactions in particular have no row left to fetch.
type TransactionEvent struct {
	Event         EventType `json:"event"`
	TransactionID int64     `json:"transactionId"`
	UserID        int64     `json:"userId"`
	Date          string    `json:"date"`
	AmountCents   int64     `json:"amountCents"`
	CategoryName  string    `json:"categoryName"`
	CategoryType  string    `json:"categoryType"`
	Note          string    `json:"note,omitempty"`
	OccurredAt    time.Time `json:"occurredAt"`
}

func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
