package protect

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MisterSynergy/rfc-protect/core/storage/mocks"
)

func TestNewArchive_CreatesMissingBucket(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(false, nil)
	client.On("MakeBucket", mock.Anything, "reports", mock.Anything).Return(nil)

	_, err := NewArchive(context.Background(), client, "reports")
	require.NoError(t, err)
	client.AssertExpectations(t)
}

func TestNewArchive_ExistingBucket(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(true, nil)

	_, err := NewArchive(context.Background(), client, "reports")
	require.NoError(t, err)
	client.AssertNotCalled(t, "MakeBucket", mock.Anything, mock.Anything, mock.Anything)
}

func TestNewArchive_BucketCheckFails(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(false, fmt.Errorf("storage down"))

	_, err := NewArchive(context.Background(), client, "reports")
	assert.ErrorContains(t, err, "check archive bucket")
}

func TestArchiveStore(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(true, nil)

	var keys []string
	client.On("PutObject", mock.Anything, "reports", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			keys = append(keys, args.String(2))
		}).
		Return(minio.UploadInfo{}, nil)

	archive, err := NewArchive(context.Background(), client, "reports")
	require.NoError(t, err)

	rep := &RunReport{
		RunID:     "run-1",
		Timestamp: time.Date(2026, 8, 24, 3, 0, 0, 0, time.UTC),
	}
	require.NoError(t, archive.Store(context.Background(), rep, "wikitext body"))

	assert.Equal(t, []string{
		"reports/20260824_030000/report.json",
		"reports/20260824_030000/report.txt",
		"reports/latest.json",
	}, keys)
}

func TestArchiveLatest(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(true, nil)
	client.On("GetObject", mock.Anything, "reports", "reports/latest.json", mock.Anything).
		Return(io.NopCloser(strings.NewReader(`{"run_id":"run-1"}`)), nil)

	archive, err := NewArchive(context.Background(), client, "reports")
	require.NoError(t, err)

	data, err := archive.Latest(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"run_id":"run-1"}`, string(data))
}

func TestArchiveListRuns(t *testing.T) {
	client := new(mocks.Client)
	client.On("BucketExists", mock.Anything, "reports").Return(true, nil)

	ch := make(chan minio.ObjectInfo, 3)
	ch <- minio.ObjectInfo{Key: "reports/20260817_030000/report.json"}
	ch <- minio.ObjectInfo{Key: "reports/20260817_030000/report.txt"}
	ch <- minio.ObjectInfo{Key: "reports/20260824_030000/report.json"}
	close(ch)
	client.On("ListObjects", mock.Anything, "reports", mock.Anything).Return((<-chan minio.ObjectInfo)(ch))

	archive, err := NewArchive(context.Background(), client, "reports")
	require.NoError(t, err)

	runs, err := archive.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"reports/20260817_030000",
		"reports/20260824_030000",
	}, runs)
}
