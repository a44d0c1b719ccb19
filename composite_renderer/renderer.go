package composite_renderer

import (
	"bytes"
	"errors"
	"image"
	"image/draw"
	"image/png"
	"math"
)

type rendererImpl struct{}

type Config struct{}

func New(cfg Config) (Renderer, error) {
	return &rendererImpl{}, nil
}

// TileImages lays a batch's outputs onto a near-square grid. A batch of one
// passes through untouched; all images in a larger batch must share the
// same dimensions.
func (r *rendererImpl) TileImages(imageBufs []*bytes.Buffer) (*bytes.Buffer, error) {
	if len(imageBufs) == 0 {
		return nil, errors.New("no images to tile")
	}

	if len(imageBufs) == 1 {
		return imageBufs[0], nil
	}

	images := make([]image.Image, len(imageBufs))

	for i, buf := range imageBufs {
		img, _, err := image.Decode(buf)
		if err != nil {
			return nil, err
		}

		images[i] = img
	}

	firstBounds := images[0].Bounds()

	for _, img := range images {
		if img.Bounds() != firstBounds {
			return nil, errors.New("images are not the same size")
		}
	}

	cols := int(math.Ceil(math.Sqrt(float64(len(images)))))
	rows := (len(images) + cols - 1) / cols

	tileWidth := firstBounds.Dx()
	tileHeight := firstBounds.Dy()

	retImage := image.NewRGBA(image.Rect(0, 0, tileWidth*cols, tileHeight*rows))

	for i, img := range images {
		origin := image.Pt((i%cols)*tileWidth, (i/cols)*tileHeight)

		draw.Draw(retImage, img.Bounds().Sub(img.Bounds().Min).Add(origin), img, img.Bounds().Min, draw.Over)
	}

	imageBuf := new(bytes.Buffer)

	err := png.Encode(imageBuf, retImage)
	if err != nil {
		return nil, err
	}

	return imageBuf, nil
}
