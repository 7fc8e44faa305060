package entities

import (
	"bytes"
	"net/http"
)

// Image is a binary image payload. It is encoded as base64 in JSON.
type Image struct {
	Data []byte `json:"data"`
}

// NewImage wraps data. It returns nil for empty data.
func NewImage(data []byte) *Image {
	if len(data) == 0 {
		return nil
	}
	return &Image{Data: data}
}

// Size returns the payload size in bytes.
func (i *Image) Size() int {
	if i == nil {
		return 0
	}
	return len(i.Data)
}

// ContentType sniffs the MIME type of the payload.
func (i *Image) ContentType() string {
	if i == nil {
		return ""
	}
	return http.DetectContentType(i.Data)
}

// Equal reports whether both images carry the same bytes.
func (i *Image) Equal(other *Image) bool {
	if i == nil || other == nil {
		return i == other
	}
	return bytes.Equal(i.Data, other.Data)
}

// Clone returns a deep copy of the image.
func (i *Image) Clone() *Image {
	if i == nil {
		return nil
	}
	return &Image{Data: append([]byte(nil), i.Data...)}
}
