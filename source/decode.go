package source

import (
	"bytes"
	"fmt"
	"unicode/utf8"

	"code.sajari.com/docconv"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode turns raw document bytes into text. Rich formats are converted with
// docconv; everything else must be valid UTF-8.
func Decode(name string, raw []byte) (string, error) {
	if IsRich(name) {
		res, err := docconv.Convert(bytes.NewReader(raw), docconv.MimeTypeByExtension(name), false)
		if err != nil {
			return "", fmt.Errorf("%w: convert %s: %w", ErrNotText, name, err)
		}
		return res.Body, nil
	}

	raw = bytes.TrimPrefix(raw, utf8BOM)
	if !utf8.Valid(raw) || bytes.IndexByte(raw, 0) >= 0 {
		return "", fmt.Errorf("%w: %s", ErrNotText, name)
	}
	return string(raw), nil
}

// Router picks the FileSystem or S3 source based on the path scheme.
type Router struct {
	Local  Source
	Remote Source
}

// For returns the source responsible for p. The remote source may be nil
// when S3 is not configured.
func (r Router) For(p string) (Source, error) {
	if IsS3(p) {
		if r.Remote == nil {
			return nil, fmt.Errorf("%w: s3 source not configured for %s", ErrInvalidURI, p)
		}
		return r.Remote, nil
	}
	if r.Local == nil {
		return FileSystem{}, nil
	}
	return r.Local, nil
}
