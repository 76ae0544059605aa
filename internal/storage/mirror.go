// Package storage mirrors written artifacts to a Google Cloud Storage bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	gcs "cloud.google.com/go/storage"
	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"labelocr/internal/logger"
)

// Mirror uploads local files to <bucket>/<folder>/<basename>. Objects are
// written with a does-not-exist precondition, so an object that is already
// there counts as uploaded, unless the upload overwrites.
type Mirror struct {
	client *gcs.Client
	bucket *gcs.BucketHandle
	folder string
	log    zerolog.Logger
}

// NewMirror opens a storage client for bucket.
func NewMirror(ctx context.Context, bucket, folder string, opts ...option.ClientOption) (*Mirror, error) {
	const op = "NewMirror"

	if bucket == "" {
		return nil, fmt.Errorf("%s: bucket name is required", op)
	}
	client, err := gcs.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to create storage client: %w", op, err)
	}
	return &Mirror{
		client: client,
		bucket: client.Bucket(bucket),
		folder: strings.Trim(folder, "/"),
		log:    logger.WithComponent("gcs-mirror").With().Str("bucket", bucket).Logger(),
	}, nil
}

// Upload copies each file to the bucket. With overwrite set, existing
// objects are replaced. It stops at the first failure.
func (m *Mirror) Upload(ctx context.Context, overwrite bool, paths ...string) error {
	for _, p := range paths {
		if err := m.upload(ctx, p, overwrite); err != nil {
			return err
		}
	}
	return nil
}

func (m *Mirror) upload(ctx context.Context, localPath string, overwrite bool) error {
	const op = "Upload"

	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	defer f.Close()

	name := objectName(m.folder, localPath)
	obj := m.bucket.Object(name)
	if cond, ok := writeConditions(overwrite); ok {
		obj = obj.If(cond)
	}
	w := obj.NewWriter(ctx)

	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		if preconditionFailed(err) {
			m.log.Debug().Str("object", name).Msg("Object already exists, skipping")
			return nil
		}
		return fmt.Errorf("%s: failed to copy %s to gs://%s: %w", op, localPath, name, err)
	}
	if err := w.Close(); err != nil {
		if preconditionFailed(err) {
			m.log.Debug().Str("object", name).Msg("Object already exists, skipping")
			return nil
		}
		return fmt.Errorf("%s: failed to finalize %s: %w", op, name, err)
	}

	m.log.Debug().Str("object", name).Msg("Artifact mirrored")
	return nil
}

// Close releases the storage client.
func (m *Mirror) Close() error {
	return m.client.Close()
}

// writeConditions returns the precondition for a write, if any.
func writeConditions(overwrite bool) (gcs.Conditions, bool) {
	if overwrite {
		return gcs.Conditions{}, false
	}
	return gcs.Conditions{DoesNotExist: true}, true
}

func objectName(folder, localPath string) string {
	base := filepath.Base(localPath)
	if folder == "" {
		return base
	}
	return path.Join(folder, base)
}

func preconditionFailed(err error) bool {
	var gerr *googleapi.Error
	return errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed
}
