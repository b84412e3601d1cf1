package domain

// ReceiptRecord is the persisted detail of one confirmed purchase, keyed in
// the ledger by the SHA-256 of its canonical text. Items is the comma-joined
// product names in cart order; the per-line price breakdown is not preserved.
type ReceiptRecord struct {
	Items string `json:"items"`
	Total int64  `json:"total"`
	Date  string `json:"date"` // ISO 8601
}
