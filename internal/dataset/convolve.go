// Public domain.

package dataset

import "gonum.org/v1/gonum/dsp/fourier"

// convolve returns the convolution of an nx by ny image with a square
// kernel of side 2h+1, same size as the image, zero padded at the edges.
func convolve(img []float64, nx, ny int, k []float64, h int) []float64 {
	if h == 0 {
		out := make([]float64, len(img))
		for i, v := range img {
			out[i] = v * k[0]
		}
		return out
	}
	fw, fh := nx+2*h, ny+2*h
	n := 2*h + 1
	a := make([][]complex128, fh)
	b := make([][]complex128, fh)
	for y := range a {
		a[y] = make([]complex128, fw)
		b[y] = make([]complex128, fw)
	}
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			a[y][x] = complex(img[y*nx+x], 0)
		}
	}
	// kernel center to (0,0), wrapping
	for y := 0; y < n; y++ {
		yy := (y - h + fh) % fh
		for x := 0; x < n; x++ {
			xx := (x - h + fw) % fw
			b[yy][xx] = complex(k[y*n+x], 0)
		}
	}
	fft2(a, true)
	fft2(b, true)
	for y := range a {
		for x := range a[y] {
			a[y][x] *= b[y][x]
		}
	}
	fft2(a, false)
	out := make([]float64, nx*ny)
	norm := float64(fw * fh)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			out[y*nx+x] = real(a[y][x]) / norm
		}
	}
	return out
}

// fft2 transforms a in place, rows then columns.  The inverse is not
// normalized.
func fft2(a [][]complex128, forward bool) {
	h, w := len(a), len(a[0])
	rowFFT := fourier.NewCmplxFFT(w)
	colFFT := fourier.NewCmplxFFT(h)
	src := make([]complex128, w)
	for y := 0; y < h; y++ {
		copy(src, a[y])
		if forward {
			rowFFT.Coefficients(a[y], src)
		} else {
			rowFFT.Sequence(a[y], src)
		}
	}
	col := make([]complex128, h)
	dst := make([]complex128, h)
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			col[y] = a[y][x]
		}
		if forward {
			colFFT.Coefficients(dst, col)
		} else {
			colFFT.Sequence(dst, col)
		}
		for y := 0; y < h; y++ {
			a[y][x] = dst[y]
		}
	}
}
