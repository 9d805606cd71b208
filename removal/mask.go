package removal

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const maskThreshold = 128

// ApplyMask returns a copy of src with pixels outside the foreground mask set
// fully transparent. The mask must match the source dimensions.
func ApplyMask(src image.Image, mask *image.Gray) *image.NRGBA {
	bounds := src.Bounds()
	out := imaging.Clone(src)

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if mask.GrayAt(x, y).Y < maskThreshold {
				out.SetNRGBA(x, y, color.NRGBA{})
			}
		}
	}
	return out
}

// ApplyMaskWithBackground replaces masked-out pixels with a solid background
// color instead of transparency.
func ApplyMaskWithBackground(src image.Image, mask *image.Gray, bg color.Color) *image.NRGBA {
	bounds := src.Bounds()
	out := imaging.Clone(src)
	fill := color.NRGBAModel.Convert(bg).(color.NRGBA)

	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			if mask.GrayAt(x, y).Y < maskThreshold {
				out.SetNRGBA(x, y, fill)
			}
		}
	}
	return out
}

// RefineMask smooths jagged mask edges with a small blur followed by a
// re-threshold, trading a slightly tighter silhouette for fewer halo pixels.
func RefineMask(mask *image.Gray) *image.Gray {
	blurred := imaging.Blur(mask, 1.5)
	out := image.NewGray(mask.Bounds())
	for y := 0; y < mask.Bounds().Dy(); y++ {
		for x := 0; x < mask.Bounds().Dx(); x++ {
			c := color.GrayModel.Convert(blurred.At(x, y)).(color.Gray)
			if c.Y >= maskThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}

// scaleMask resizes a mask to the target dimensions and re-binarizes it.
func scaleMask(mask *image.Gray, width, height int) *image.Gray {
	if mask.Bounds().Dx() == width && mask.Bounds().Dy() == height {
		return mask
	}
	resized := imaging.Resize(mask, width, height, imaging.Linear)
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.GrayModel.Convert(resized.At(x, y)).(color.Gray)
			if c.Y >= maskThreshold {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
