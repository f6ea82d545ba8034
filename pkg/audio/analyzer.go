package audio

import (
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
)

// Audible band retained when looking for speech energy.
const (
	LowFreq  = 20.0
	HighFreq = 20000.0
)

// Analyzer turns one block of mono samples into a magnitude.
// It keeps its FFT plan and buffers between calls and is not safe for
// concurrent use; each stream owns its own Analyzer.
type Analyzer struct {
	MaxMagnitude int32

	fft *fourier.CmplxFFT
	in  []complex128
	out []complex128
}

func NewAnalyzer(maxMagnitude int32) *Analyzer {
	return &Analyzer{MaxMagnitude: maxMagnitude}
}

// Prepare sizes the FFT plan for blocks of n samples.
func (a *Analyzer) Prepare(n int) {
	if n <= 0 || (a.fft != nil && a.fft.Len() == n) {
		return
	}
	a.fft = fourier.NewCmplxFFT(n)
	a.in = make([]complex128, n)
	a.out = make([]complex128, n)
}

// BinRange returns the half open range of FFT bins between LowFreq and
// HighFreq for a block of n samples, capped at n.
func BinRange(n, sampleRate int) (start, end int) {
	if n <= 0 || sampleRate <= 0 {
		return 0, 0
	}
	start = int(LowFreq * float64(n) / float64(sampleRate))
	end = min(int(HighFreq*float64(n)/float64(sampleRate)), n)
	return start, end
}

// Peak returns the largest bin value floor(|c|)+1 inside the audible band,
// or 0 when the band is empty.
func (a *Analyzer) Peak(samples []float32, sampleRate int) int32 {
	start, end := BinRange(len(samples), sampleRate)
	if start >= end {
		return 0
	}
	a.Prepare(len(samples))
	for i, s := range samples {
		a.in[i] = complex(float64(s), 0)
	}
	a.out = a.fft.Coefficients(a.out, a.in)

	var peak int32
	for _, c := range a.out[start:end] {
		re, im := real(c), imag(c)
		if v := int32(math.Sqrt(re*re+im*im)) + 1; v > peak {
			peak = v
		}
	}
	return peak
}

// Magnitude is Peak clamped to MaxMagnitude.
func (a *Analyzer) Magnitude(samples []float32, sampleRate int) int32 {
	return a.Clamp(a.Peak(samples, sampleRate))
}

func (a *Analyzer) Clamp(peak int32) int32 {
	return min(peak, a.MaxMagnitude)
}
