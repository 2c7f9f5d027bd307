// Package undelete restores objects hidden behind a latest delete marker in a
// versioned bucket and reports the ones that remain hidden.
package undelete

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/logger"
	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"
)

var ErrStalledCursor = errors.New("listing truncated without advancing cursor")

// ListError reports a failed listing call. Page is the 1-based page that
// could not be fetched.
type ListError struct {
	Page int
	Err  error
}

func (e *ListError) Error() string {
	return fmt.Sprintf("list page %d: %v", e.Page, e.Err)
}

func (e *ListError) Unwrap() error { return e.Err }

// Lister walks every page of a version listing for one location.
type Lister struct {
	store    storage.VersionStore
	loc      storage.Location
	pageSize int32
}

func NewLister(store storage.VersionStore, loc storage.Location, pageSize int) *Lister {
	return &Lister{store: store, loc: loc, pageSize: int32(pageSize)}
}

// Pages yields listing pages in order, starting from the first page on every
// call. A listing failure is yielded once as a *ListError and ends the
// sequence. The store's own retry policy is the only retry.
func (l *Lister) Pages(ctx context.Context) iter.Seq2[storage.ListingPage, error] {
	return l.pages(ctx, false)
}

// KeyPages is Pages resuming on the key marker alone, so the next page
// starts after the last key listed. Callers that delete versions while
// walking use it: the version-id marker may name a version they removed.
// Older versions of a key split across pages are not listed; the latest
// version of a key always comes first.
func (l *Lister) KeyPages(ctx context.Context) iter.Seq2[storage.ListingPage, error] {
	return l.pages(ctx, true)
}

func (l *Lister) pages(ctx context.Context, byKey bool) iter.Seq2[storage.ListingPage, error] {
	return func(yield func(storage.ListingPage, error) bool) {
		req := storage.ListRequest{
			Bucket:  l.loc.Bucket,
			Prefix:  l.loc.Prefix,
			MaxKeys: l.pageSize,
		}

		for pageNum := 1; ; pageNum++ {
			page, err := l.store.ListObjectVersions(ctx, req)
			if err != nil {
				yield(storage.ListingPage{}, &ListError{Page: pageNum, Err: err})
				return
			}
			logger.Ctx(ctx).Debug().
				Int("page", pageNum).
				Int("entries", len(page.Entries)).
				Bool("truncated", page.IsTruncated).
				Msg("listed object versions")

			if !yield(page, nil) {
				return
			}
			if !page.IsTruncated {
				return
			}

			next := storage.ListRequest{
				Bucket:    req.Bucket,
				Prefix:    req.Prefix,
				MaxKeys:   req.MaxKeys,
				KeyMarker: page.NextKeyMarker,
			}
			if !byKey {
				next.VersionIDMarker = page.NextVersionIDMarker
			}
			if next.KeyMarker == "" || (next.KeyMarker == req.KeyMarker && next.VersionIDMarker == req.VersionIDMarker) {
				yield(storage.ListingPage{}, &ListError{Page: pageNum + 1, Err: ErrStalledCursor})
				return
			}
			req = next
		}
	}
}
