package insight

// #region minmax

// MinMax scales present values to [0, 1] across the column.
// A column of equal present values maps to all zeros. Absent values (a nil gap
// ratio, i.e. a zero-word answer) are left out of the range and map to 0.
// The result never holds NaN.
func MinMax(values []*float64) []float64 {
	out := make([]float64, len(values))

	var lo, hi float64
	present := 0
	for _, v := range values {
		if v == nil {
			continue
		}
		if present == 0 || *v < lo {
			lo = *v
		}
		if present == 0 || *v > hi {
			hi = *v
		}
		present++
	}

	if present == 0 || hi == lo {
		return out
	}

	span := hi - lo
	for i, v := range values {
		if v != nil {
			out[i] = (*v - lo) / span
		}
	}
	return out
}

// MinMaxInts is MinMax over an integer column with no absent values.
func MinMaxInts(values []int) []float64 {
	ptrs := make([]*float64, len(values))
	for i, v := range values {
		f := float64(v)
		ptrs[i] = &f
	}
	return MinMax(ptrs)
}

// #endregion minmax
