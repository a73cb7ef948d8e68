package runstore

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/uiforge/internal/config"
)

// objectStore is the part of *minio.Client the archiver uses.
type objectStore interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, object, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// Archiver uploads finished run directories to S3-compatible storage.
type Archiver struct {
	store  objectStore
	bucket string
	region string
	prefix string
	limit  int
	logger *slog.Logger
}

// NewArchiver connects to the storage described by cfg.
func NewArchiver(cfg config.Archive, logger *slog.Logger) (*Archiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("runstore: archive client: %w", err)
	}
	return newArchiver(client, cfg, logger), nil
}

func newArchiver(store objectStore, cfg config.Archive, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Archiver{
		store:  store,
		bucket: cfg.Bucket,
		region: cfg.Region,
		prefix: strings.Trim(cfg.Prefix, "/"),
		limit:  4,
		logger: logger,
	}
}

// ObjectKey is where file rel of run id is stored.
func (a *Archiver) ObjectKey(runID, rel string) string {
	return path.Join(a.prefix, runID, rel)
}

// Upload copies every file of the run directory dir. The bucket is created
// when missing. It returns the number of objects written.
func (a *Archiver) Upload(ctx context.Context, runID, dir string) (int, error) {
	ok, err := a.store.BucketExists(ctx, a.bucket)
	if err != nil {
		return 0, fmt.Errorf("runstore: archive bucket: %w", err)
	}
	if !ok {
		if err := a.store.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{Region: a.region}); err != nil {
			return 0, fmt.Errorf("runstore: archive bucket: %w", err)
		}
	}

	var files []string
	err = filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() && !strings.HasSuffix(p, ".tmp") {
			files = append(files, p)
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("runstore: archive walk: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.limit)
	for _, p := range files {
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return 0, fmt.Errorf("runstore: archive walk: %w", err)
		}
		key := a.ObjectKey(runID, filepath.ToSlash(rel))
		g.Go(func() error {
			opts := minio.PutObjectOptions{ContentType: contentType(p)}
			if _, err := a.store.FPutObject(gctx, a.bucket, key, p, opts); err != nil {
				return fmt.Errorf("runstore: archive %s: %w", key, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}
	a.logger.Info("run archived", "run_id", runID, "bucket", a.bucket, "objects", len(files))
	return len(files), nil
}

func contentType(p string) string {
	switch filepath.Ext(p) {
	case ".jsonl":
		return "application/x-ndjson"
	case ".yaml", ".yml":
		return "application/yaml"
	case ".md":
		return "text/markdown"
	case ".vue", ".java", ".sql", ".ts", ".properties":
		return "text/plain"
	}
	if t := mime.TypeByExtension(filepath.Ext(p)); t != "" {
		return t
	}
	return "application/octet-stream"
}
