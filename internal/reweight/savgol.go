package reweight

import "gonum.org/v1/gonum/mat"

// SavitzkyGolay smooths ys with a Savitzky-Golay filter of the given odd
// window and polynomial order (spec §4.G step 2: window 101, order 3).
// Edge samples, where a full window does not fit, are smoothed with the
// largest centred odd window that does fit, so the output has the same
// length as the input.
func SavitzkyGolay(ys []float64, window, order int) []float64 {
	n := len(ys)
	if window%2 == 0 {
		window++
	}
	out := make([]float64, n)
	half := window / 2

	coeffCache := map[int][]float64{}
	coeffsFor := func(w int) []float64 {
		if c, ok := coeffCache[w]; ok {
			return c
		}
		c := savgolCoefficients(w, order)
		coeffCache[w] = c
		return c
	}

	for i := 0; i < n; i++ {
		h := half
		if i-h < 0 {
			h = i
		}
		if i+h >= n {
			h = n - 1 - i
		}
		w := 2*h + 1
		if w < order+1 {
			out[i] = ys[i]
			continue
		}
		coeffs := coeffsFor(w)
		var sum float64
		for k := -h; k <= h; k++ {
			sum += coeffs[k+h] * ys[i+k]
		}
		out[i] = sum
	}
	return out
}

// savgolCoefficients returns the length-window convolution coefficients
// for the zeroth-derivative (smoothed value) Savitzky-Golay estimator at
// the centre of the window, built from the weighted least-squares
// polynomial fit A^T A c = A^T e_centre (Gram-matrix solve via gonum/mat,
// the same linear-algebra approach used for the circumcentre solve in
// the centre package's circumcentre).
func savgolCoefficients(window, order int) []float64 {
	half := window / 2
	a := mat.NewDense(window, order+1, nil)
	for i := 0; i < window; i++ {
		x := float64(i - half)
		xp := 1.0
		for j := 0; j <= order; j++ {
			a.Set(i, j, xp)
			xp *= x
		}
	}

	var ata mat.Dense
	ata.Mul(a.T(), a)

	var ataInv mat.Dense
	if err := ataInv.Inverse(&ata); err != nil {
		// Degenerate design matrix (window too small for order): fall back
		// to an identity (no smoothing) rather than propagating a matrix
		// error into a convolution kernel.
		coeffs := make([]float64, window)
		coeffs[half] = 1
		return coeffs
	}

	// pseudo-inverse row 0 dotted with A^T gives the coefficients that map
	// y -> fitted polynomial value at x=0 (the window centre).
	var pinvRow0 mat.Dense
	pinvRow0.Mul(&ataInv, a.T())

	coeffs := make([]float64, window)
	for k := 0; k < window; k++ {
		coeffs[k] = pinvRow0.At(0, k)
	}
	return coeffs
}
