package infra

import (
	"context"
	"fmt"
	"io"
	"os"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// ReportArchive copies rendered Z-Report PDFs into a Cloud Storage bucket.
type ReportArchive struct {
	client *storage.Client
	bucket string
}

func NewReportArchive(ctx context.Context, bucket string, opts ...option.ClientOption) (*ReportArchive, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	if _, err := client.Bucket(bucket).Attrs(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("gcs bucket %q not accessible: %w", bucket, err)
	}
	return &ReportArchive{client: client, bucket: bucket}, nil
}

// Archive uploads the file at localPath as object.
func (a *ReportArchive) Archive(ctx context.Context, object, localPath string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := a.client.Bucket(a.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, f); err != nil {
		_ = w.Close()
		return fmt.Errorf("gcs upload %s: %w", object, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("gcs upload %s: %w", object, err)
	}
	return nil
}

func (a *ReportArchive) Close() error { return a.client.Close() }
