package ledger

// Strength bounds. New pathways start at InitialStrength; reinforcement
// moves strength within [MinStrength, MaxStrength] and saturates at the
// boundaries rather than wrapping.
const (
	MinStrength     uint8 = 0
	MaxStrength     uint8 = 255
	InitialStrength uint8 = 1
)

// satIncrement returns s+1 clamped at MaxStrength.
func satIncrement(s uint8) uint8 {
	if s == MaxStrength {
		return MaxStrength
	}
	return s + 1
}

// satDecrement returns s-1 clamped at MinStrength. A wrapped decrement
// from 0 to 255 would falsely read as maximal trust, so the floor holds.
func satDecrement(s uint8) uint8 {
	if s == MinStrength {
		return MinStrength
	}
	return s - 1
}
