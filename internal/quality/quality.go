package quality

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"kakdoma/internal/domain"
)

const (
	darkMeanLimit   = 60
	brightMeanLimit = 200

	darkExposureScore   = 0.2
	brightExposureScore = 0.3

	lightingOKFloor = 0.5
)

// Analyzer scores captured images for blur and exposure and advises whether a
// parse attempt is worth retrying. All methods are safe for concurrent use;
// the analyzer holds no mutable state.
type Analyzer struct {
	blurThreshold   float64
	retryConfidence float64
}

// NewAnalyzer builds an analyzer. blurThreshold is the minimum acceptable
// Laplacian variance; retryConfidence is the confidence floor below which a
// retry is advised.
func NewAnalyzer(blurThreshold, retryConfidence float64) *Analyzer {
	return &Analyzer{
		blurThreshold:   blurThreshold,
		retryConfidence: retryConfidence,
	}
}

// Analyze scores one payload. Payloads that do not decode as an image
// (pre-extracted text fixtures, delegated-OCR inputs) skip pixel analysis and
// carry the parse confidence through unchanged.
func (a *Analyzer) Analyze(payload []byte, rec domain.MRZRecord) domain.OCRQuality {
	img, _, err := image.Decode(bytes.NewReader(payload))
	if err != nil {
		return domain.OCRQuality{
			BlurScore:            a.blurThreshold,
			ExposureScore:        1.0,
			LightingOK:           true,
			NormalizedConfidence: rec.Confidence,
		}
	}

	gray := grayscale(img)
	exposure := exposureScore(mean(gray.pix))
	blur := laplacianVariance(equalize(gray))

	return domain.OCRQuality{
		BlurScore:            blur,
		ExposureScore:        exposure,
		LightingOK:           exposure >= lightingOKFloor,
		NormalizedConfidence: rec.Confidence * exposure,
	}
}

// NeedsRetry reports whether another capture or extraction attempt is
// advisable. Advisory only; routing stays with the decision engine.
func (a *Analyzer) NeedsRetry(q domain.OCRQuality, rec domain.MRZRecord) bool {
	if q.NormalizedConfidence < a.retryConfidence {
		return true
	}
	if !rec.ChecksumOK {
		return true
	}
	if q.BlurScore < a.blurThreshold {
		return true
	}
	return q.ExposureScore < lightingOKFloor
}

// grayImage is a flat 8-bit grayscale raster.
type grayImage struct {
	w, h int
	pix  []uint8
}

func grayscale(img image.Image) grayImage {
	b := img.Bounds()
	g := grayImage{
		w:   b.Dx(),
		h:   b.Dy(),
		pix: make([]uint8, b.Dx()*b.Dy()),
	}
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, gr, bl, _ := img.At(x, y).RGBA()
			// ITU-R BT.601 luma on 16-bit channels
			g.pix[i] = uint8((299*r + 587*gr + 114*bl) / 1000 >> 8)
			i++
		}
	}
	return g
}

func mean(pix []uint8) float64 {
	if len(pix) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range pix {
		sum += float64(p)
	}
	return sum / float64(len(pix))
}

func exposureScore(m float64) float64 {
	switch {
	case m < darkMeanLimit:
		return darkExposureScore
	case m > brightMeanLimit:
		return brightExposureScore
	default:
		return 1.0
	}
}

// equalize spreads the intensity histogram over the full range so the blur
// measure is comparable across differently lit captures.
func equalize(g grayImage) grayImage {
	var hist [256]int
	for _, p := range g.pix {
		hist[p]++
	}
	var cdf [256]int
	running := 0
	for i, n := range hist {
		running += n
		cdf[i] = running
	}
	cdfMin := 0
	for _, c := range cdf {
		if c > 0 {
			cdfMin = c
			break
		}
	}
	total := len(g.pix)
	if total == 0 || total == cdfMin {
		return g
	}
	out := grayImage{w: g.w, h: g.h, pix: make([]uint8, total)}
	scale := 255.0 / float64(total-cdfMin)
	for i, p := range g.pix {
		v := float64(cdf[p]-cdfMin) * scale
		if v < 0 {
			v = 0
		}
		out.pix[i] = uint8(v)
	}
	return out
}

// laplacianVariance measures sharpness as the variance of the 4-neighbor
// discrete Laplacian over interior pixels. Low values mean blur.
func laplacianVariance(g grayImage) float64 {
	if g.w < 3 || g.h < 3 {
		return 0
	}
	n := (g.w - 2) * (g.h - 2)
	values := make([]float64, 0, n)
	sum := 0.0
	for y := 1; y < g.h-1; y++ {
		for x := 1; x < g.w-1; x++ {
			c := float64(g.pix[y*g.w+x])
			lap := 4*c -
				float64(g.pix[(y-1)*g.w+x]) -
				float64(g.pix[(y+1)*g.w+x]) -
				float64(g.pix[y*g.w+x-1]) -
				float64(g.pix[y*g.w+x+1])
			values = append(values, lap)
			sum += lap
		}
	}
	m := sum / float64(n)
	variance := 0.0
	for _, v := range values {
		d := v - m
		variance += d * d
	}
	return variance / float64(n)
}
