package protect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/MisterSynergy/rfc-protect/core/storage"
)

const latestReportKey = "reports/latest.json"

// Archive persists run reports to the object storage bucket. Each run is
// stored under a timestamped prefix, and the JSON report is additionally
// written to a fixed "latest" key for the report server.
type Archive struct {
	client storage.Client
	bucket string
}

// NewArchive creates an archive over the given bucket, creating the bucket
// if it does not exist yet.
func NewArchive(ctx context.Context, client storage.Client, bucket string) (*Archive, error) {
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check archive bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create archive bucket: %w", err)
		}
	}
	return &Archive{client: client, bucket: bucket}, nil
}

// Store uploads the report JSON and its rendered wikitext.
func (a *Archive) Store(ctx context.Context, rep *RunReport, wikitext string) error {
	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}

	prefix := fmt.Sprintf("reports/%s", rep.Timestamp.UTC().Format("20060102_150405"))
	objects := []struct {
		key         string
		body        []byte
		contentType string
	}{
		{prefix + "/report.json", data, "application/json"},
		{prefix + "/report.txt", []byte(wikitext), "text/plain"},
		{latestReportKey, data, "application/json"},
	}

	for _, obj := range objects {
		_, err := a.client.PutObject(ctx, a.bucket, obj.key,
			bytes.NewReader(obj.body), int64(len(obj.body)),
			minio.PutObjectOptions{ContentType: obj.contentType})
		if err != nil {
			return fmt.Errorf("upload %s: %w", obj.key, err)
		}
	}
	return nil
}

// Latest returns the most recently stored report JSON.
func (a *Archive) Latest(ctx context.Context) ([]byte, error) {
	obj, err := a.client.GetObject(ctx, a.bucket, latestReportKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch latest report: %w", err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("read latest report: %w", err)
	}
	return data, nil
}

// ListRuns returns the stored run prefixes, newest last.
func (a *Archive) ListRuns(ctx context.Context) ([]string, error) {
	var runs []string
	for info := range a.client.ListObjects(ctx, a.bucket, minio.ListObjectsOptions{Prefix: "reports/", Recursive: true}) {
		if info.Err != nil {
			return nil, fmt.Errorf("list archived runs: %w", info.Err)
		}
		if strings.HasSuffix(info.Key, "/report.json") {
			runs = append(runs, strings.TrimSuffix(info.Key, "/report.json"))
		}
	}
	return runs, nil
}
