package model

// Service is a billable offering owned by the external services catalog.
// The scheduling core only ever reads it: the price and tax percentages are
// copied onto a bill at derivation time, and the duration (when present)
// supplies a default appointment length.
type Service struct {
	ID                 string  `json:"id"`
	Name               string  `json:"name"`
	Price              float64 `json:"price"`
	VATPercent         float64 `json:"vat_percent"`
	WithholdingPercent float64 `json:"withholding_percent"`
	OtherPercent       float64 `json:"other_percent"`
	DurationMinutes    int     `json:"duration_minutes,omitempty"`
	Description        string  `json:"description,omitempty"`
}
