package kernel

// ApplyDropout zeroes each element of m independently with probability p
// and rescales survivors by 1/(1-p) (inverted dropout), so the expected
// activation magnitude is unchanged between train and eval. p=0 is the
// identity. rng is caller-supplied so dropout masks are reproducible in
// tests and deterministic given a seed.
func ApplyDropout(m *Matrix, p float32, rng *Mulberry32) *Matrix {
	if p <= 0 {
		out := NewMatrix(m.Rows, m.Cols)
		copy(out.Data, m.Data)
		return out
	}
	scale := float32(1) / (1 - p)
	out := NewMatrix(m.Rows, m.Cols)
	for i, x := range m.Data {
		if rng.Float32() < p {
			continue
		}
		out.Data[i] = x * scale
	}
	return out
}
