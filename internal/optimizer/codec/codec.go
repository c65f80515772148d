package codec

import (
	"bytes"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/fgribreau/img-optimizer/internal/apperror"
	"github.com/fgribreau/img-optimizer/internal/optimizer"
	"github.com/fgribreau/img-optimizer/internal/params"

	// Register the stdlib decoders next to the ones imaging and webp
	// bring along
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
)

// Imaging is the default Codec, backed by disintegration/imaging for
// JPEG/PNG/GIF and chai2010/webp for WebP.
type Imaging struct{}

func New() *Imaging {
	return &Imaging{}
}

func (codec *Imaging) Decode(blob []byte) (image.Image, optimizer.Source, error) {
	img, formatName, err := image.Decode(bytes.NewReader(blob))
	if err != nil {
		return nil, optimizer.Source{}, apperror.NewDecodeFailed(err.Error())
	}

	return img, optimizer.Source{
		Format:   formatName,
		HasAlpha: hasAlpha(img),
	}, nil
}

func (codec *Imaging) Resize(img image.Image, width int) image.Image {
	// Height 0 preserves the aspect ratio
	return imaging.Resize(img, width, 0, imaging.Lanczos)
}

// Encode renders the image in the requested format. Quality only affects
// the lossy formats and is accepted as a no-op for PNG.
func (codec *Imaging) Encode(img image.Image, format params.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case params.FormatPNG:
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, apperror.NewEncodeFailed(err.Error())
		}
	case params.FormatWebP:
		if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(quality)}); err != nil {
			return nil, apperror.NewEncodeFailed(err.Error())
		}
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
			return nil, apperror.NewEncodeFailed(err.Error())
		}
	}

	return buf.Bytes(), nil
}

func hasAlpha(img image.Image) bool {
	if opaquer, ok := img.(interface{ Opaque() bool }); ok {
		return !opaquer.Opaque()
	}

	return false
}
