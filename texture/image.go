package texture

import (
	"image"
	"io"
	"os"

	// Decoders for the texture formats the engine accepts.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pkg/errors"
	"golang.org/x/image/draw"
)

// Decode reads an encoded image and converts it to RGBA with the first row at
// the bottom, the order texture coordinates expect.
func Decode(r io.Reader) (*image.RGBA, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, errors.Wrap(err, "decode texture image")
	}

	b := img.Bounds()
	rgbaImg := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgbaImg, rgbaImg.Bounds(), img, b.Min, draw.Src)

	flipVertical(rgbaImg)
	return rgbaImg, nil
}

// DecodeFile opens path and decodes it with Decode.
func DecodeFile(path string) (*image.RGBA, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open texture file")
	}
	defer fh.Close()

	return Decode(fh)
}

// White returns a single opaque white pixel, used when no texture is given.
func White() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(img.Pix, []byte{0xff, 0xff, 0xff, 0xff})
	return img
}

func flipVertical(img *image.RGBA) {
	height := img.Bounds().Dy()
	rowSize := img.Bounds().Dx() * 4
	row := make([]byte, rowSize)

	for y := 0; y < height/2; y++ {
		top := img.Pix[y*img.Stride : y*img.Stride+rowSize]
		bottomY := height - 1 - y
		bottom := img.Pix[bottomY*img.Stride : bottomY*img.Stride+rowSize]

		copy(row, top)
		copy(top, bottom)
		copy(bottom, row)
	}
}
