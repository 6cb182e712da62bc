package agents

// Energy returns the multiplicative work factor combining health, fatigue
// and morale. Health never drops the factor below 0.2 and morale keeps it
// within [0.5, 1.0]; fatigue can zero it.
func Energy(p Person) float64 {
	h := max(0.2, float64(p.HP)/100)
	f := max(0.0, float64(100-p.Fatigue)/100)
	m := clamp(0.5+0.5*(float64(p.Morale)/100), 0.5, 1.0)
	return h * f * m
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
