// Package bucket discovers uploaded screenshots in a cloud storage bucket.
// Listing is poll-based; nothing is ever deleted or marked remotely, so
// de-duplication is the caller's concern.
package bucket

import (
	"context"
	"path"
	"strings"
	"time"
)

// Object is one PNG upload. Name is the base file name (the de-duplication
// identity); Key is the full object path used for downloads.
type Object struct {
	Name    string
	Key     string
	Created time.Time
}

type Lister interface {
	// List returns the bucket's current PNG objects.
	List(ctx context.Context) ([]Object, error)
	// Download fetches an object's raw bytes by Key.
	Download(ctx context.Context, key string) ([]byte, error)
}

// IsPNG reports whether an object name should be considered at all.
func IsPNG(name string) bool {
	return strings.HasSuffix(strings.ToLower(name), ".png")
}

// BaseName strips any folder prefix from an object key.
func BaseName(key string) string {
	return path.Base(key)
}

// NameTime extracts the upload timestamp encoded in screenshot file names
// of the form "prefix_20251201_144858.png". The second return is false when
// the name carries no parseable timestamp.
func NameTime(name string) (time.Time, bool) {
	parts := strings.Split(strings.TrimSuffix(name, path.Ext(name)), "_")
	if len(parts) < 3 {
		return time.Time{}, false
	}
	date := parts[len(parts)-2]
	clock := parts[len(parts)-1]
	if len(clock) > 6 {
		clock = clock[:6]
	}
	ts, err := time.Parse("20060102_150405", date+"_"+clock)
	if err != nil {
		return time.Time{}, false
	}
	return ts.UTC(), true
}
