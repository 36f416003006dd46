package classify

import (
	"image"
	"math"
)

// Same-size normalized cross-correlation. The capture region and the
// reference templates share one fixed pixel size, so no window scanning or
// scale search is needed; a single correlation per template suffices.

// templateStats caches grayscale pixels and summary statistics for one
// reference template, computed once at startup.
type templateStats struct {
	gray []float64
	mean float64
	std  float64
	w, h int
}

const flatStdEps = 1e-9

// precomputeTemplate converts a reference image to grayscale and computes
// its mean and standard deviation.
func precomputeTemplate(tmpl image.Image) *templateStats {
	b := tmpl.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}
	gray := make([]float64, w*h)
	var sum, sum2 float64
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bb, _ := tmpl.At(b.Min.X+x, b.Min.Y+y).RGBA()
			v := 0.2126*float64(r) + 0.7152*float64(g) + 0.0722*float64(bb)
			gray[y*w+x] = v
			sum += v
			sum2 += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	variance := (sum2 - sum*sum/n) / n
	std := 0.0
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return &templateStats{gray: gray, mean: mean, std: std, w: w, h: h}
}

// frameGray converts an RGBA frame to the same grayscale representation used
// for templates and returns the values with their mean and std.
func frameGray(frame *image.RGBA) ([]float64, float64, float64) {
	b := frame.Bounds()
	w, h := b.Dx(), b.Dy()
	gray := make([]float64, w*h)
	var sum, sum2 float64
	for y := 0; y < h; y++ {
		row := frame.Pix[y*frame.Stride : y*frame.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			v := 0.2126*float64(uint32(row[i])<<8) + 0.7152*float64(uint32(row[i+1])<<8) + 0.0722*float64(uint32(row[i+2])<<8)
			gray[y*w+x] = v
			sum += v
			sum2 += v * v
		}
	}
	n := float64(w * h)
	mean := sum / n
	variance := (sum2 - sum*sum/n) / n
	std := 0.0
	if variance > 0 {
		std = math.Sqrt(variance)
	}
	return gray, mean, std
}

// scoreNCC computes the normalized cross-correlation between a frame's
// grayscale values and a precomputed template of identical dimensions,
// clamped to [0,1]. Anti-correlated frames score zero.
func scoreNCC(gray []float64, mean, std float64, t *templateStats) float64 {
	n := float64(len(gray))
	if n == 0 || len(gray) != len(t.gray) {
		return 0
	}
	if t.std <= flatStdEps || std <= flatStdEps {
		// At least one side is flat; correlate by mean proximity instead.
		if t.std <= flatStdEps && std <= flatStdEps {
			// Means are in the 16-bit luma domain; tolerate one 8-bit step.
			if math.Abs(mean-t.mean) <= 256 {
				return 1
			}
		}
		return 0
	}
	var dot float64
	for i := range gray {
		dot += gray[i] * t.gray[i]
	}
	score := (dot - n*mean*t.mean) / (n * std * t.std)
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
