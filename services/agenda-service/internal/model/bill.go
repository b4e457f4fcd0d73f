package model

import "time"

type BillStatus string

const (
	BillPending BillStatus = "pending"
	BillPaid    BillStatus = "paid"
	BillVoid    BillStatus = "void"
)

// Bill is a financial snapshot. The tax percentages are copied from the
// service at derivation time and the total is computed exactly once; a later
// change to the service never recomputes an existing bill.
type Bill struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	IssueDate          string     `json:"issue_date"` // YYYY-MM-DD
	ClientID           string     `json:"client_id,omitempty"`
	ClientName         string     `json:"client_name"`
	Description        string     `json:"description"`
	Base               float64    `json:"base"`
	VATPercent         float64    `json:"vat_percent"`
	WithholdingPercent float64    `json:"withholding_percent"`
	OtherPercent       float64    `json:"other_percent"`
	Total              float64    `json:"total"`
	Status             BillStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
}
