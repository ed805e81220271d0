package media

import "errors"

var (
	// ErrNotImage is returned when the data is not in a recognized image format.
	ErrNotImage = errors.New("data is not a recognized image")

	// ErrInvalidPreviewWidth is returned for a preview width below one column.
	ErrInvalidPreviewWidth = errors.New("preview width must be positive")
)
