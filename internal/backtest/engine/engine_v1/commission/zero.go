package commission

// NewZero returns a model that charges nothing on either leg.
func NewZero() Model {
	return NewFlatRate(0)
}
