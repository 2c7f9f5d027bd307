package undelete

import (
	"context"
	"errors"
	"testing"

	"github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"

	"github.com/google/go-cmp/cmp"
)

func threePages() map[string]storage.ListingPage {
	return map[string]storage.ListingPage{
		"": {
			Entries:             []storage.VersionEntry{liveVersion("docs/a", "a1", true), latestMarker("docs/b", "b2")},
			IsTruncated:         true,
			NextKeyMarker:       "docs/b",
			NextVersionIDMarker: "b2",
		},
		"docs/b": {
			Entries:             []storage.VersionEntry{liveVersion("docs/b", "b1", false), liveVersion("docs/c", "c1", true)},
			IsTruncated:         true,
			NextKeyMarker:       "docs/c",
			NextVersionIDMarker: "c1",
		},
		"docs/c": {
			Entries: []storage.VersionEntry{latestMarker("docs/d", "d1")},
		},
	}
}

func collectKeys(t *testing.T, l *Lister) []string {
	t.Helper()

	var keys []string
	for page, err := range l.Pages(context.Background()) {
		if err != nil {
			t.Fatalf("pages: %v", err)
		}
		for _, e := range page.Entries {
			keys = append(keys, e.Key+"@"+e.VersionID)
		}
	}
	return keys
}

func TestListerVisitsEveryPageInOrder(t *testing.T) {
	store := &fakeStore{pages: threePages()}
	l := NewLister(store, testLocation, 2)

	got := collectKeys(t, l)
	want := []string{"docs/a@a1", "docs/b@b2", "docs/b@b1", "docs/c@c1", "docs/d@d1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}

	wantReqs := []storage.ListRequest{
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2},
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2, KeyMarker: "docs/b", VersionIDMarker: "b2"},
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2, KeyMarker: "docs/c", VersionIDMarker: "c1"},
	}
	if diff := cmp.Diff(wantReqs, store.listCalls); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestListerKeyPagesResumeOnKeyMarkerOnly(t *testing.T) {
	store := &fakeStore{pages: threePages()}
	l := NewLister(store, testLocation, 2)

	var pages int
	for _, err := range l.KeyPages(context.Background()) {
		if err != nil {
			t.Fatalf("pages: %v", err)
		}
		pages++
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}

	wantReqs := []storage.ListRequest{
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2},
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2, KeyMarker: "docs/b"},
		{Bucket: "bucket", Prefix: "docs/", MaxKeys: 2, KeyMarker: "docs/c"},
	}
	if diff := cmp.Diff(wantReqs, store.listCalls); diff != "" {
		t.Fatalf("requests mismatch (-want +got):\n%s", diff)
	}
}

func TestListerKeyPagesDetectRepeatedKeyMarker(t *testing.T) {
	store := &fakeStore{pages: map[string]storage.ListingPage{
		"":  {IsTruncated: true, NextKeyMarker: "k", NextVersionIDMarker: "v1"},
		"k": {IsTruncated: true, NextKeyMarker: "k", NextVersionIDMarker: "v2"},
	}}

	var gotErr error
	for _, err := range NewLister(store, testLocation, 1).KeyPages(context.Background()) {
		if err != nil {
			gotErr = err
		}
	}
	if !errors.Is(gotErr, ErrStalledCursor) {
		t.Fatalf("expected stalled cursor error, got %v", gotErr)
	}
	if len(store.listCalls) != 2 {
		t.Fatalf("expected 2 list calls, got %d", len(store.listCalls))
	}
}

func TestListerStopsOnUntruncatedPage(t *testing.T) {
	store := &fakeStore{pages: map[string]storage.ListingPage{
		"": {
			Entries:       []storage.VersionEntry{latestMarker("k", "v")},
			NextKeyMarker: "ignored",
		},
	}}

	got := collectKeys(t, NewLister(store, testLocation, 10))
	if diff := cmp.Diff([]string{"k@v"}, got); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
	if len(store.listCalls) != 1 {
		t.Fatalf("expected one list call, got %d", len(store.listCalls))
	}
}

func TestListerRestartsFromScratch(t *testing.T) {
	store := &fakeStore{pages: threePages()}
	l := NewLister(store, testLocation, 2)

	first := collectKeys(t, l)
	second := collectKeys(t, l)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("second walk differs (-first +second):\n%s", diff)
	}
	if len(store.listCalls) != 6 {
		t.Fatalf("expected 6 list calls, got %d", len(store.listCalls))
	}
	if store.listCalls[3].KeyMarker != "" {
		t.Fatalf("second walk should start without a marker, got %q", store.listCalls[3].KeyMarker)
	}
}

func TestListerReportsFailingPage(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{
		pages: threePages(),
		listFn: func(call int, _ storage.ListRequest) error {
			if call == 1 {
				return boom
			}
			return nil
		},
	}

	var pages int
	var gotErr error
	for _, err := range NewLister(store, testLocation, 2).Pages(context.Background()) {
		if err != nil {
			gotErr = err
			continue
		}
		pages++
	}

	if pages != 1 {
		t.Fatalf("expected 1 page before failure, got %d", pages)
	}
	var listErr *ListError
	if !errors.As(gotErr, &listErr) {
		t.Fatalf("expected ListError, got %T: %v", gotErr, gotErr)
	}
	if listErr.Page != 2 {
		t.Fatalf("expected failure on page 2, got %d", listErr.Page)
	}
	if !errors.Is(gotErr, boom) {
		t.Fatalf("expected wrapped cause, got %v", gotErr)
	}
	if len(store.listCalls) != 2 {
		t.Fatalf("expected no list call after failure, got %d calls", len(store.listCalls))
	}
}

func TestListerDetectsStalledCursor(t *testing.T) {
	tests := []struct {
		name  string
		pages map[string]storage.ListingPage
	}{
		{
			name: "missing marker",
			pages: map[string]storage.ListingPage{
				"": {IsTruncated: true},
			},
		},
		{
			name: "repeated marker",
			pages: map[string]storage.ListingPage{
				"":  {IsTruncated: true, NextKeyMarker: "k", NextVersionIDMarker: "v"},
				"k": {IsTruncated: true, NextKeyMarker: "k", NextVersionIDMarker: "v"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &fakeStore{pages: tt.pages}
			var gotErr error
			for _, err := range NewLister(store, testLocation, 1).Pages(context.Background()) {
				if err != nil {
					gotErr = err
				}
			}
			if !errors.Is(gotErr, ErrStalledCursor) {
				t.Fatalf("expected stalled cursor error, got %v", gotErr)
			}
		})
	}
}

func TestListerStopsWhenConsumerBreaks(t *testing.T) {
	store := &fakeStore{pages: threePages()}
	for _, err := range NewLister(store, testLocation, 2).Pages(context.Background()) {
		if err != nil {
			t.Fatalf("pages: %v", err)
		}
		break
	}
	if len(store.listCalls) != 1 {
		t.Fatalf("expected one list call, got %d", len(store.listCalls))
	}
}
