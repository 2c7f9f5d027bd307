package undelete

import "github.com/IAmSomeoneLikeYou/s3-restore/internal/storage"

// FilterLatestDeleteMarkers returns, in page order, the entries that are both
// a delete marker and the latest version of their key.
func FilterLatestDeleteMarkers(page storage.ListingPage) []storage.VersionEntry {
	var out []storage.VersionEntry
	for _, entry := range page.Entries {
		if entry.IsDeleteMarker && entry.IsLatest {
			out = append(out, entry)
		}
	}
	return out
}
