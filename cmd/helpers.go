package main

import (
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rotisserie/eris"

	"github.com/urbemaps/geofence/internal/area"
	"github.com/urbemaps/geofence/internal/storage"
)

// openStore builds the configured storage backend.
func openStore() (storage.Store, error) {
	sc := cfg.Storage
	switch sc.Driver {
	case "file":
		return storage.NewFileStore(sc.Path), nil
	case "sqlite":
		return storage.NewSQLite(sc.Path)
	case "s3":
		client, err := minio.New(sc.S3.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(sc.S3.AccessKey, sc.S3.SecretKey, ""),
			Secure: sc.S3.UseSSL,
		})
		if err != nil {
			return nil, eris.Wrap(err, "open s3 client")
		}
		return storage.NewMinioStore(client, sc.S3.Bucket, sc.S3.Key), nil
	default:
		return nil, eris.Errorf("unknown storage driver %q", sc.Driver)
	}
}

// openRepository builds the repository over the configured store.
func openRepository() (*area.Repository, storage.Store, error) {
	if err := cfg.Validate("cli"); err != nil {
		return nil, nil, err
	}
	st, err := openStore()
	if err != nil {
		return nil, nil, err
	}
	return area.NewRepository(st), st, nil
}
