package events

import "context"

// ReceiptRecorded is emitted after a checkout is confirmed and its receipt
// has been written to the ledger.
type ReceiptRecorded struct {
	Hash  string `json:"hash"`
	Items string `json:"items"`
	Total int64  `json:"total"`
	Date  string `json:"date"`
}

type Publisher interface {
	PublishReceiptRecorded(ctx context.Context, event ReceiptRecorded) error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) PublishReceiptRecorded(context.Context, ReceiptRecorded) error {
	return nil
}
