package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // GIF decoder
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	_ "golang.org/x/image/bmp"  // BMP decoder
	_ "golang.org/x/image/tiff" // TIFF decoder
	_ "golang.org/x/image/webp" // WebP decoder
)

// Tag is one EXIF entry.
type Tag struct {
	// IFD is the directory path the tag was found in, e.g. "IFD/Exif".
	IFD string `json:"ifd"`

	// Name is the tag name, e.g. "Make".
	Name string `json:"name"`

	// Value is the formatted tag value.
	Value string `json:"value"`

	// Sensitive marks tags that can identify a person, device or place.
	Sensitive bool `json:"sensitive,omitempty"`
}

// Info describes an image.
type Info struct {
	// Format is the decoder name: "gif", "jpeg", "png", "bmp", "tiff" or "webp".
	Format string `json:"format"`

	Width  int `json:"width"`
	Height int `json:"height"`

	// Tags are the EXIF entries in file order. Empty when the image has none.
	Tags []Tag `json:"exif,omitempty"`
}

// sensitiveTags are EXIF tags that can identify a person, device or place.
var sensitiveTags = map[string]bool{
	"GPSLatitude":        true,
	"GPSLongitude":       true,
	"GPSLatitudeRef":     true,
	"GPSLongitudeRef":    true,
	"GPSAltitude":        true,
	"SerialNumber":       true,
	"CameraSerialNumber": true,
	"BodySerialNumber":   true,
	"LensSerialNumber":   true,
	"Artist":             true,
	"Author":             true,
	"Copyright":          true,
	"XPAuthor":           true,
	"CameraOwnerName":    true,
}

// Inspect decodes the image header and any EXIF block of data.
// Data that no registered decoder accepts yields ErrNotImage.
func Inspect(data []byte) (*Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotImage, err)
	}

	info := &Info{
		Format: format,
		Width:  cfg.Width,
		Height: cfg.Height,
	}

	info.Tags = extractExif(data)
	return info, nil
}

// extractExif returns the flattened EXIF entries, or nil if there are none.
// A malformed EXIF block is treated like a missing one.
func extractExif(data []byte) []Tag {
	rawExif, err := exif.SearchAndExtractExif(data)
	if err != nil || rawExif == nil {
		return nil
	}

	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil
	}

	tags := make([]Tag, 0, len(entries))
	for _, entry := range entries {
		if entry.TagName == "" {
			continue
		}
		tags = append(tags, Tag{
			IFD:       entry.IfdPath,
			Name:      entry.TagName,
			Value:     strings.TrimSpace(entry.Formatted),
			Sensitive: sensitiveTags[entry.TagName],
		})
	}
	return tags
}

// SensitiveTags returns the tags marked Sensitive.
func (i *Info) SensitiveTags() []Tag {
	var out []Tag
	for _, t := range i.Tags {
		if t.Sensitive {
			out = append(out, t)
		}
	}
	return out
}

// Tag returns the value of the first tag with the given name.
func (i *Info) Tag(name string) (string, bool) {
	for _, t := range i.Tags {
		if t.Name == name {
			return t.Value, true
		}
	}
	return "", false
}
