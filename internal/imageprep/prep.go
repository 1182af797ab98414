// Package imageprep normalizes raw leaflet page images into
// recognition-ready variants. Leaflet backgrounds vary wildly (white print
// pages, saturated red promo pages), so every page is rendered both as a
// contrast-stretched grayscale and as a binarized single-channel image; the
// recognizer runs on all variants and a keyword only needs to survive one.
package imageprep

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

const (
	standardScale     = 1.5
	highContrastScale = 2.0

	// binarizeThreshold splits text from background after channel isolation.
	binarizeThreshold = 128
)

// Variants returns the recognition-ready renditions of a raw page image.
// Both variants are independent and order-insensitive.
func Variants(src image.Image) []image.Image {
	return []image.Image{
		Standard(src),
		HighContrast(src),
	}
}

// Standard produces a grayscale, moderately upscaled, contrast-stretched
// rendition. Effective on light and neutral backgrounds.
func Standard(src image.Image) image.Image {
	gray := scaleGray(src, standardScale)
	stretchContrast(gray)
	return gray
}

// HighContrast isolates the color channel with the widest spread (the one
// that best separates text from a saturated background), upscales, and
// binarizes with a fixed threshold. Effective where grayscale conversion
// flattens the contrast away.
func HighContrast(src image.Image) image.Image {
	channel := bestChannel(src)
	gray := isolateChannel(src, channel)
	scaled := resizeGray(gray, highContrastScale)
	binarize(scaled)
	return scaled
}

func scaleGray(src image.Image, factor float64) *image.Gray {
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func resizeGray(src *image.Gray, factor float64) *image.Gray {
	b := src.Bounds()
	w := int(math.Round(float64(b.Dx()) * factor))
	h := int(math.Round(float64(b.Dy()) * factor))
	dst := image.NewGray(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// stretchContrast linearly remaps pixel intensities to the full 0..255 range.
func stretchContrast(img *image.Gray) {
	min, max := uint8(255), uint8(0)
	for _, px := range img.Pix {
		if px < min {
			min = px
		}
		if px > max {
			max = px
		}
	}
	if min >= max {
		return
	}
	span := float64(max - min)
	for i, px := range img.Pix {
		img.Pix[i] = uint8(math.Round(float64(px-min) / span * 255))
	}
}

// bestChannel picks the RGB channel with the greatest intensity spread,
// measured by standard deviation. On a red promo page the green channel
// carries most of the text/background separation.
func bestChannel(src image.Image) int {
	b := src.Bounds()
	var sum, sumSq [3]float64
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return 1
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			for i, v := range [3]float64{float64(r >> 8), float64(g >> 8), float64(bl >> 8)} {
				sum[i] += v
				sumSq[i] += v * v
			}
		}
	}
	best, bestVar := 1, -1.0
	for i := 0; i < 3; i++ {
		mean := sum[i] / n
		variance := sumSq[i]/n - mean*mean
		if variance > bestVar {
			best, bestVar = i, variance
		}
	}
	return best
}

func isolateChannel(src image.Image, channel int) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := src.At(x, y).RGBA()
			var v uint32
			switch channel {
			case 0:
				v = r
			case 2:
				v = bl
			default:
				v = g
			}
			dst.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: uint8(v >> 8)})
		}
	}
	return dst
}

func binarize(img *image.Gray) {
	for i, px := range img.Pix {
		if px >= binarizeThreshold {
			img.Pix[i] = 255
		} else {
			img.Pix[i] = 0
		}
	}
}
