package storage

import (
	"context"
	"errors"
)

var (
	ErrVersionNotFound = errors.New("object version not found")
	ErrMissingField    = errors.New("missing required field")
)

// VersionEntry is one row of a version listing: either a real object version
// or a delete marker.
type VersionEntry struct {
	Key            string
	VersionID      string
	IsLatest       bool
	IsDeleteMarker bool
}

// ListingPage is one page of a version listing. The Next markers are only
// meaningful when IsTruncated is set.
type ListingPage struct {
	Entries             []VersionEntry
	IsTruncated         bool
	NextKeyMarker       string
	NextVersionIDMarker string
}

// ListRequest asks for one listing page. An empty Prefix scans the whole
// bucket; empty markers request the first page.
type ListRequest struct {
	Bucket          string
	Prefix          string
	KeyMarker       string
	VersionIDMarker string
	MaxKeys         int32
}

type VersionStore interface {
	ListObjectVersions(ctx context.Context, req ListRequest) (ListingPage, error)
	// DeleteObjectVersion removes one specific version. It returns an error
	// wrapping ErrVersionNotFound when the version no longer exists.
	DeleteObjectVersion(ctx context.Context, bucket, key, versionID string) error
}
