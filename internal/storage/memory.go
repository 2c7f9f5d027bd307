package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

const defaultMaxKeys = 1000

var ErrBucketNotFound = errors.New("bucket not found")

type memoryVersion struct {
	id           string
	deleteMarker bool
}

// VersionRef names one version of one key.
type VersionRef struct {
	Bucket    string
	Key       string
	VersionID string
}

// MemoryStore is an in-process versioned bucket store. Listing follows S3
// ordering: keys ascending, versions of a key newest first.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]map[string][]memoryVersion // versions oldest first
	seq     int
	deletes []VersionRef
	lists   []ListRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{buckets: make(map[string]map[string][]memoryVersion)}
}

func (m *MemoryStore) CreateBucket(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string][]memoryVersion)
	}
}

// PutObject appends a new object version and returns its version id.
func (m *MemoryStore) PutObject(bucket, key string) string {
	return m.appendVersion(bucket, key, false)
}

// DeleteObject performs a versioned delete: it stacks a delete marker on top
// of the key and returns the marker's version id.
func (m *MemoryStore) DeleteObject(bucket, key string) string {
	return m.appendVersion(bucket, key, true)
}

func (m *MemoryStore) appendVersion(bucket, key string, deleteMarker bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	objects, ok := m.buckets[bucket]
	if !ok {
		objects = make(map[string][]memoryVersion)
		m.buckets[bucket] = objects
	}
	m.seq++
	id := "v" + strconv.Itoa(m.seq)
	objects[key] = append(objects[key], memoryVersion{id: id, deleteMarker: deleteMarker})
	return id
}

// Latest reports the head version of key.
func (m *MemoryStore) Latest(bucket, key string) (VersionEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	versions := m.buckets[bucket][key]
	if len(versions) == 0 {
		return VersionEntry{}, false
	}
	head := versions[len(versions)-1]
	return VersionEntry{Key: key, VersionID: head.id, IsLatest: true, IsDeleteMarker: head.deleteMarker}, true
}

// DeleteCalls returns every DeleteObjectVersion call received, in order.
func (m *MemoryStore) DeleteCalls() []VersionRef {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]VersionRef(nil), m.deletes...)
}

// ListCalls returns every ListObjectVersions request received, in order.
func (m *MemoryStore) ListCalls() []ListRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ListRequest(nil), m.lists...)
}

func (m *MemoryStore) ListObjectVersions(ctx context.Context, req ListRequest) (ListingPage, error) {
	if err := ctx.Err(); err != nil {
		return ListingPage{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lists = append(m.lists, req)

	objects, ok := m.buckets[req.Bucket]
	if !ok {
		return ListingPage{}, fmt.Errorf("list %q: %w", req.Bucket, ErrBucketNotFound)
	}

	maxKeys := int(req.MaxKeys)
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	keys := make([]string, 0, len(objects))
	for key := range objects {
		if strings.HasPrefix(key, req.Prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	var page ListingPage
	for _, key := range keys {
		if req.KeyMarker != "" && key < req.KeyMarker {
			continue
		}
		if req.KeyMarker != "" && key == req.KeyMarker && req.VersionIDMarker == "" {
			continue
		}

		versions := objects[key]
		// Resuming inside a key skips through the marker version.
		resuming := req.KeyMarker != "" && key == req.KeyMarker
		for i := len(versions) - 1; i >= 0; i-- {
			v := versions[i]
			if resuming {
				if v.id == req.VersionIDMarker {
					resuming = false
				}
				continue
			}
			if len(page.Entries) == maxKeys {
				last := page.Entries[len(page.Entries)-1]
				page.IsTruncated = true
				page.NextKeyMarker = last.Key
				page.NextVersionIDMarker = last.VersionID
				return page, nil
			}
			page.Entries = append(page.Entries, VersionEntry{
				Key:            key,
				VersionID:      v.id,
				IsLatest:       i == len(versions)-1,
				IsDeleteMarker: v.deleteMarker,
			})
		}
	}
	return page, nil
}

func (m *MemoryStore) DeleteObjectVersion(ctx context.Context, bucket, key, versionID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes = append(m.deletes, VersionRef{Bucket: bucket, Key: key, VersionID: versionID})

	objects, ok := m.buckets[bucket]
	if !ok {
		return fmt.Errorf("delete %q: %w", bucket, ErrBucketNotFound)
	}
	versions := objects[key]
	for i, v := range versions {
		if v.id != versionID {
			continue
		}
		versions = append(versions[:i], versions[i+1:]...)
		if len(versions) == 0 {
			delete(objects, key)
		} else {
			objects[key] = versions
		}
		return nil
	}
	return fmt.Errorf("delete %s@%s: %w", key, versionID, ErrVersionNotFound)
}
