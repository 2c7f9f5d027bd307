package storage

import (
	"errors"
	"fmt"
	"strings"
)

const URIScheme = "s3"

var ErrInvalidURI = errors.New("invalid storage uri")

// Location is the bucket and optional key prefix a run operates on.
type Location struct {
	Bucket string
	Prefix string
}

func (l Location) String() string {
	return URIScheme + "://" + l.Bucket + "/" + l.Prefix
}

// ParseURI splits s3://bucket/prefix into its bucket and prefix. The prefix
// is kept as written, without percent-decoding, and every leading slash is
// dropped; an empty result means no prefix.
func ParseURI(raw string) (Location, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Location{}, fmt.Errorf("%w: empty uri", ErrInvalidURI)
	}

	scheme, rest, ok := strings.Cut(trimmed, "://")
	if !ok || !strings.EqualFold(scheme, URIScheme) {
		return Location{}, fmt.Errorf("%w: scheme must be %s://, got %q", ErrInvalidURI, URIScheme, raw)
	}
	if strings.ContainsAny(rest, "?#") {
		return Location{}, fmt.Errorf("%w: query and fragment are not supported in %q", ErrInvalidURI, raw)
	}

	bucket, path, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return Location{}, fmt.Errorf("%w: missing bucket in %q", ErrInvalidURI, raw)
	}
	if strings.ContainsAny(bucket, "@:%") {
		return Location{}, fmt.Errorf("%w: bucket must be a plain name in %q", ErrInvalidURI, raw)
	}

	return Location{
		Bucket: bucket,
		Prefix: strings.TrimLeft(path, "/"),
	}, nil
}
