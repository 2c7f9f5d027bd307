package undelete

import (
	"context"
	"fmt"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"
)

// fakeStore serves fixed pages keyed by the request's key marker, so every
// pass that starts from scratch sees the same listing.
type fakeStore struct {
	pages    map[string]storage.ListingPage
	listFn   func(call int, req storage.ListRequest) error
	deleteFn func(key, versionID string) error

	listCalls   []storage.ListRequest
	deleteCalls []storage.VersionRef
}

func (f *fakeStore) ListObjectVersions(_ context.Context, req storage.ListRequest) (storage.ListingPage, error) {
	call := len(f.listCalls)
	f.listCalls = append(f.listCalls, req)
	if f.listFn != nil {
		if err := f.listFn(call, req); err != nil {
			return storage.ListingPage{}, err
		}
	}
	page, ok := f.pages[req.KeyMarker]
	if !ok {
		return storage.ListingPage{}, fmt.Errorf("unexpected list call with key marker %q", req.KeyMarker)
	}
	return page, nil
}

func (f *fakeStore) DeleteObjectVersion(_ context.Context, bucket, key, versionID string) error {
	f.deleteCalls = append(f.deleteCalls, storage.VersionRef{Bucket: bucket, Key: key, VersionID: versionID})
	if f.deleteFn != nil {
		return f.deleteFn(key, versionID)
	}
	return nil
}

func singlePage(entries ...storage.VersionEntry) map[string]storage.ListingPage {
	return map[string]storage.ListingPage{"": {Entries: entries}}
}

func latestMarker(key, versionID string) storage.VersionEntry {
	return storage.VersionEntry{Key: key, VersionID: versionID, IsLatest: true, IsDeleteMarker: true}
}

func liveVersion(key, versionID string, latest bool) storage.VersionEntry {
	return storage.VersionEntry{Key: key, VersionID: versionID, IsLatest: latest}
}

var testLocation = storage.Location{Bucket: "bucket", Prefix: "docs/"}
