package raster

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"

	"terragen/internal/world"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ErrUnknownFormat is returned by Encode for unsupported formats.
var ErrUnknownFormat = errors.New("unknown image format")

// ToImage copies the buffer into an RGBA image.
func (b *PixelBuffer) ToImage() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.Flatten())
	return img
}

// Scaled returns the buffer enlarged by an integer factor with
// nearest-neighbour sampling, keeping pixel edges crisp in previews.
func (b *PixelBuffer) Scaled(factor int) *image.RGBA {
	return ScaleImage(b.ToImage(), factor)
}

// ScaleImage enlarges src by an integer factor with nearest-neighbour
// sampling. Factors below 2 return src unchanged.
func ScaleImage(src *image.RGBA, factor int) *image.RGBA {
	if factor <= 1 {
		return src
	}
	r := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx()*factor, r.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, r, draw.Src, nil)
	return dst
}

// Atlas places each chunk's buffer on one image at its grid position relative
// to the minimum coordinate. All tiles are assumed to share the size of the
// first one encountered.
func Atlas(tiles map[world.ChunkCoord]*PixelBuffer) *image.RGBA {
	if len(tiles) == 0 {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	first := true
	var minC, maxC world.ChunkCoord
	var tw, th int
	for c, b := range tiles {
		if first {
			minC, maxC = c, c
			tw, th = b.width, b.height
			first = false
			continue
		}
		minC.X, minC.Z = min(minC.X, c.X), min(minC.Z, c.Z)
		maxC.X, maxC.Z = max(maxC.X, c.X), max(maxC.Z, c.Z)
	}
	cols := maxC.X - minC.X + 1
	rows := maxC.Z - minC.Z + 1
	atlas := image.NewRGBA(image.Rect(0, 0, cols*tw, rows*th))
	for c, b := range tiles {
		at := image.Pt((c.X-minC.X)*tw, (c.Z-minC.Z)*th)
		src := b.ToImage()
		draw.Draw(atlas, src.Bounds().Add(at), src, image.Point{}, draw.Src)
	}
	return atlas
}

// Encode writes img as "png" or "bmp".
func Encode(w io.Writer, img image.Image, format string) error {
	switch format {
	case "png":
		return png.Encode(w, img)
	case "bmp":
		return bmp.Encode(w, img)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
