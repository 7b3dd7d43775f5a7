package market

// Schedule is a preference schedule: the value (buyers) or cost (sellers) of
// each successive unit. Buyer values fall and seller costs rise unit by unit.
type Schedule struct {
	IsBuyer bool
	values  []float64 // values[0] is unit 1
}

// NewSchedule spreads units evenly from base, stepping base*spread/units per
// unit: downwards for buyers, upwards for sellers.
func NewSchedule(isBuyer bool, base, spread float64, units int) Schedule {
	s := Schedule{IsBuyer: isBuyer}
	if units <= 0 {
		return s
	}
	s.values = make([]float64, units)

	step := base * spread / float64(units)
	if isBuyer {
		step = -step
	}
	for i := range s.values {
		s.values[i] = base + float64(i)*step
	}
	return s
}

// Value returns the value of the given 1-indexed unit, 0 outside the schedule.
func (s Schedule) Value(unit int) float64 {
	if unit < 1 || unit > len(s.values) {
		return 0
	}
	return s.values[unit-1]
}

// Units is the number of units the schedule tracks.
func (s Schedule) Units() int { return len(s.values) }

// Values returns a copy of the per-unit values.
func (s Schedule) Values() []float64 {
	out := make([]float64, len(s.values))
	copy(out, s.values)
	return out
}
