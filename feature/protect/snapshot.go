package protect

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// SnapshotLoader fetches the weekly usage dataset over HTTP and parses it
// into usage records. The feed is CSV with a header row and columns
// itemID,usageCount. Any unreadable row fails the whole load: a partially
// read snapshot must never drive decisions.
type SnapshotLoader struct {
	url        string
	cachePath  string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewSnapshotLoader creates a loader for the given feed URL. cachePath, if
// non-empty, receives a copy of the raw feed body for later inspection.
func NewSnapshotLoader(url, cachePath string, logger *zap.Logger) *SnapshotLoader {
	return &SnapshotLoader{
		url:        url,
		cachePath:  cachePath,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
		logger:     logger,
	}
}

// Load fetches and parses the usage snapshot.
func (l *SnapshotLoader) Load(ctx context.Context) ([]UsageRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build snapshot request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch usage snapshot: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch usage snapshot: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read usage snapshot: %w", err)
	}

	if l.cachePath != "" {
		if err := os.WriteFile(l.cachePath, body, 0o644); err != nil {
			// The cache is a convenience copy, not an input.
			l.logger.Warn("failed to cache usage snapshot", zap.String("path", l.cachePath), zap.Error(err))
		}
	}

	records, err := parseSnapshot(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	l.logger.Info("usage snapshot loaded",
		zap.String("url", l.url), zap.Int("records", len(records)))
	return records, nil
}

func parseSnapshot(r io.Reader) ([]UsageRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var records []UsageRecord
	for line := 1; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse usage snapshot line %d: %w", line, err)
		}
		if line == 1 {
			// Header row.
			continue
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("parse usage snapshot line %d: expected 2 columns, got %d", line, len(row))
		}
		count, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, fmt.Errorf("parse usage snapshot line %d: usage count %q: %w", line, row[1], err)
		}
		if count < 0 {
			return nil, fmt.Errorf("parse usage snapshot line %d: negative usage count %d", line, count)
		}
		records = append(records, UsageRecord{ItemID: row[0], UsageCount: count})
	}
	return records, nil
}

// SubscriberCounter provides the number of subscribed projects for an
// item. Implemented by the wiki API client.
type SubscriberCounter interface {
	SubscriberCount(ctx context.Context, itemID string) (int, error)
}

// EnrichSubscribers fills in SubscribedProjects for the records that could
// plausibly qualify for addition, i.e. those at or above the entity usage
// limit. Limiting enrichment to that slice keeps the number of API calls
// proportional to the candidate set rather than the snapshot. No-op when
// the policy does not require a minimum.
func EnrichSubscribers(ctx context.Context, records []UsageRecord, counter SubscriberCounter, pol Policy) error {
	if pol.MinSubscribedProjects <= 0 {
		return nil
	}
	for i := range records {
		if records[i].UsageCount < pol.EntityUsageLimit {
			continue
		}
		n, err := counter.SubscriberCount(ctx, records[i].ItemID)
		if err != nil {
			return fmt.Errorf("subscriber count for %s: %w", records[i].ItemID, err)
		}
		records[i].SubscribedProjects = n
	}
	return nil
}
