package engine

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// MaxManifestBytes caps how much of a discovery response is read, after
// content decoding.
const MaxManifestBytes = 1 << 20

// ErrManifestTooLarge reports a discovery document over MaxManifestBytes.
var ErrManifestTooLarge = errors.New("manifest exceeds size limit")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadManifestBody reads a discovery response, undoing gzip or deflate
// content encoding and a leading UTF-8 byte order mark.
func ReadManifestBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("open gzip body: %w", err)
		}
		defer zr.Close()
		reader = zr
	case "deflate":
		fr := flate.NewReader(resp.Body)
		defer fr.Close()
		reader = fr
	}

	body, err := io.ReadAll(io.LimitReader(reader, MaxManifestBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read manifest body: %w", err)
	}
	if len(body) > MaxManifestBytes {
		return nil, fmt.Errorf("%w: over %d bytes", ErrManifestTooLarge, MaxManifestBytes)
	}
	return bytes.TrimPrefix(body, utf8BOM), nil
}
