package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// preprocess prepares a rasterized page for recognition: grayscale,
// light blur to suppress scan noise, binary threshold, median filter
// to drop salt-and-pepper artifacts.
func preprocess(src image.Image) *image.Gray {
	gray := imaging.Grayscale(src)
	blurred := imaging.Blur(gray, 0.5)
	binary := threshold(blurred, 128)
	return medianFilter(binary)
}

// threshold maps every pixel to pure black or white.
func threshold(src *image.NRGBA, cutoff uint8) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			// src is grayscale already, any channel works
			v := src.NRGBAAt(x, y).R
			if v >= cutoff {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}

// medianFilter applies a 3x3 median over a binary image. For a
// two-valued image the median of a window is whichever value holds
// the majority of its 9 samples.
func medianFilter(src *image.Gray) *image.Gray {
	bounds := src.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			white := 0
			samples := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := x+dx, y+dy
					if nx < bounds.Min.X || nx >= bounds.Max.X || ny < bounds.Min.Y || ny >= bounds.Max.Y {
						continue
					}
					samples++
					if src.GrayAt(nx, ny).Y >= 128 {
						white++
					}
				}
			}
			if white*2 >= samples {
				out.SetGray(x, y, color.Gray{Y: 255})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return out
}
