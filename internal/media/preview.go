package media

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"golang.org/x/image/draw"
)

// previewRamp maps luminance to characters, darkest first.
const previewRamp = " .:-=+*#%@"

// Preview renders data as character art at most width columns wide.
// Rows are halved to compensate for terminal cells being about twice as tall
// as they are wide. An image narrower than width is not enlarged.
func Preview(data []byte, width int) (string, error) {
	if width <= 0 {
		return "", ErrInvalidPreviewWidth
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNotImage, err)
	}

	bounds := src.Bounds()
	if bounds.Dx() == 0 || bounds.Dy() == 0 {
		return "", nil
	}

	cols := min(width, bounds.Dx())
	rows := max(1, cols*bounds.Dy()/bounds.Dx()/2)

	dst := image.NewGray(image.Rect(0, 0, cols, rows))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, bounds, draw.Src, nil)

	var sb strings.Builder
	sb.Grow((cols + 1) * rows)
	last := len(previewRamp) - 1
	for y := range rows {
		for x := range cols {
			lum := int(dst.GrayAt(x, y).Y)
			sb.WriteByte(previewRamp[lum*last/255])
		}
		sb.WriteByte('\n')
	}
	return sb.String(), nil
}
