package protect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// BlacklistLoader fetches the operator-maintained exclusion list. The
// source is an on-wiki JSON page served raw: a flat array of item ids.
type BlacklistLoader struct {
	url        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewBlacklistLoader creates a loader for the given blacklist URL.
func NewBlacklistLoader(url string, logger *zap.Logger) *BlacklistLoader {
	return &BlacklistLoader{
		url:        url,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// Load fetches and parses the blacklist. The list is read fresh each run;
// it is never cached across runs.
func (l *BlacklistLoader) Load(ctx context.Context) (BlacklistSet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build blacklist request: %w", err)
	}
	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch blacklist: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch blacklist: unexpected status %s", resp.Status)
	}

	var ids []string
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("parse blacklist: %w", err)
	}

	set := make(BlacklistSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	l.logger.Info("blacklist loaded", zap.String("url", l.url), zap.Int("items", len(set)))
	return set, nil
}
