package commission

// Model prices the two legs of a round-trip trade. Entry cost and exit
// proceeds are commission-adjusted totals, not per-share figures.
type Model interface {
	// EntryCost returns the cash debited when buying quantity at price.
	EntryCost(quantity int64, price float64) float64
	// ExitProceeds returns the cash credited when selling quantity at price.
	ExitProceeds(quantity int64, price float64) float64
	// Rate returns the proportional commission rate.
	Rate() float64
}
