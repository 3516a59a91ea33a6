package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/rotisserie/eris"

	"github.com/urbemaps/geofence/internal/model"
)

// MinioStore persists the area mapping as a single JSON object in an
// S3-compatible bucket.
type MinioStore struct {
	client *minio.Client
	bucket string
	key    string
}

// NewMinioStore returns a store writing to the given bucket and object key.
func NewMinioStore(client *minio.Client, bucket, key string) *MinioStore {
	return &MinioStore{client: client, bucket: bucket, key: key}
}

// Load fetches and decodes the object. A missing object or bucket is an
// empty mapping.
func (s *MinioStore) Load(ctx context.Context) (map[string]model.Area, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, eris.Wrapf(err, "storage: get object %s", s.key)
	}
	defer obj.Close()

	// GetObject defers errors until the first read.
	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return map[string]model.Area{}, nil
		}
		return nil, eris.Wrapf(err, "storage: read object %s", s.key)
	}

	data = bytes.TrimPrefix(data, utf8BOM)
	areas := map[string]model.Area{}
	if err := json.Unmarshal(data, &areas); err != nil {
		return nil, eris.Wrapf(err, "storage: decode object %s", s.key)
	}
	return areas, nil
}

func (s *MinioStore) Save(ctx context.Context, areas map[string]model.Area) error {
	data, err := json.Marshal(areas)
	if err != nil {
		return eris.Wrap(err, "storage: encode areas")
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.key,
		bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/json"},
	)
	if err != nil {
		return eris.Wrapf(err, "storage: put object %s", s.key)
	}
	return nil
}

func (s *MinioStore) Close() error { return nil }
