// Package dataurl encodes and decodes base64 data URLs of the form
// data:<mediaType>;base64,<bytes>.
package dataurl

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	scheme       = "data:"
	base64Marker = ";base64"
)

// ErrInvalidDataURL is returned when a string is not a base64 data URL
var ErrInvalidDataURL = errors.New("invalid data URL")

// DataURL is inline binary content with its media type
type DataURL struct {
	MediaType string
	Data      []byte
}

// Encode builds data:<mediaType>;base64,<bytes>
func Encode(mediaType string, data []byte) string {
	return scheme + mediaType + base64Marker + "," + base64.StdEncoding.EncodeToString(data)
}

// String implements fmt.Stringer
func (d DataURL) String() string {
	return Encode(d.MediaType, d.Data)
}

// Decode parses a base64 data URL. Parameters between the media type and the
// base64 marker (e.g. ;charset=utf-8) are dropped.
func Decode(s string) (*DataURL, error) {
	if !strings.HasPrefix(s, scheme) {
		return nil, fmt.Errorf("%w: missing data: scheme", ErrInvalidDataURL)
	}

	header, payload, ok := strings.Cut(strings.TrimPrefix(s, scheme), ",")
	if !ok {
		return nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURL)
	}

	if !strings.HasSuffix(header, base64Marker) {
		return nil, fmt.Errorf("%w: only base64 payloads are supported", ErrInvalidDataURL)
	}

	params := strings.Split(strings.TrimSuffix(header, base64Marker), ";")
	mediaType := strings.TrimSpace(params[0])
	if mediaType == "" {
		mediaType = "text/plain"
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataURL, err)
	}

	return &DataURL{MediaType: mediaType, Data: data}, nil
}

// FromBytes sniffs the media type of raw bytes and wraps them
func FromBytes(data []byte) DataURL {
	mediaType := http.DetectContentType(data)
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = mediaType[:i]
	}
	return DataURL{MediaType: mediaType, Data: data}
}
