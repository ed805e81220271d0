// Package media inspects image items fetched over Gopher.
//
// Inspect identifies the image format, reads its dimensions and extracts
// EXIF metadata, marking the tags that can identify a person or place (GPS
// position, serial numbers, authorship). Preview renders a small character
// art thumbnail for terminal display.
//
// GIF, JPEG and PNG come from the standard library; BMP, TIFF and WebP
// decoders are registered from golang.org/x/image.
package media
