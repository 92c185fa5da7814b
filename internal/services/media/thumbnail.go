package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/disintegration/imaging"
)

const ThumbnailWidth = 320

type Thumbnail struct {
	Data   []byte
	Width  int
	Height int
}

// MakeThumbnail decodes an image and returns a JPEG scaled to ThumbnailWidth
// together with the source dimensions.
func MakeThumbnail(data []byte) (Thumbnail, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Thumbnail{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width := ThumbnailWidth
	if bounds.Dx() < width {
		width = bounds.Dx()
	}
	thumb := imaging.Resize(img, width, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG); err != nil {
		return Thumbnail{}, fmt.Errorf("encode thumbnail: %w", err)
	}

	return Thumbnail{
		Data:   buf.Bytes(),
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}
