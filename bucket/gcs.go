package bucket

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
)

// GCS lists and downloads objects from a Google Cloud Storage bucket.
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS via the client's
// default resolution.
type GCS struct {
	client *storage.Client
	bucket string
}

func NewGCS(ctx context.Context, bucketName string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage client: %w", err)
	}
	return &GCS{client: client, bucket: bucketName}, nil
}

func (g *GCS) List(ctx context.Context) ([]Object, error) {
	var objects []Object
	it := g.client.Bucket(g.bucket).Objects(ctx, nil)
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list bucket %s: %w", g.bucket, err)
		}
		if !IsPNG(attrs.Name) {
			continue
		}
		name := BaseName(attrs.Name)
		created := attrs.Created
		if created.IsZero() {
			// Screenshot uploaders encode the capture time in the name.
			if ts, ok := NameTime(name); ok {
				created = ts
			}
		}
		objects = append(objects, Object{
			Name:    name,
			Key:     attrs.Name,
			Created: created,
		})
	}
	return objects, nil
}

func (g *GCS) Download(ctx context.Context, key string) ([]byte, error) {
	rc, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", key, err)
	}
	return data, nil
}

func (g *GCS) Close() error {
	return g.client.Close()
}
