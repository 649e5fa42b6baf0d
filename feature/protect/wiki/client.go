package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/MisterSynergy/rfc-protect/feature/protect"
)

// Edit summaries attributing protection changes to the policy, kept in the
// wiki's audit trail.
const (
	protectReason   = "Highly used item: to be indefinitely semi-protected per [[:d:Wikidata:Protection policy#Highly used items|Wikidata:Protection policy#Highly used items]]; please use [[Template:Edit request]] on the item talk page if you cannot edit this item"
	unprotectReason = "Item is no longer highly used as per [[:d:Wikidata:Protection policy#Highly used items|Wikidata:Protection policy#Highly used items]]"
)

// ClientConfig holds the settings for NewClient.
type ClientConfig struct {
	// Endpoint is the Action API URL, e.g. https://www.wikidata.org/w/api.php.
	Endpoint string
	// OAuthToken is attached as a bearer token when set.
	OAuthToken string
	// Timeout is the per-call timeout. Defaults to 30s.
	Timeout time.Duration
	// Logger is required.
	Logger *zap.Logger
}

// Client talks to the MediaWiki Action API.
type Client struct {
	endpoint   string
	oauthToken string
	httpClient *http.Client
	logger     *zap.Logger

	mu        sync.Mutex
	csrfToken string
}

// NewClient creates an API client.
func NewClient(cfg ClientConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		endpoint:   cfg.Endpoint,
		oauthToken: cfg.OAuthToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}
}

// apiError is the error envelope of the Action API.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("api error %s: %s", e.Code, e.Info)
}

type apiResponse struct {
	Error *apiError `json:"error"`
	Query struct {
		Pages []struct {
			Title      string `json:"title"`
			Missing    bool   `json:"missing"`
			Protection []struct {
				Type   string `json:"type"`
				Level  string `json:"level"`
				Expiry string `json:"expiry"`
			} `json:"protection"`
		} `json:"pages"`
		Tokens struct {
			CSRFToken string `json:"csrftoken"`
		} `json:"tokens"`
		Statistics struct {
			Articles int `json:"articles"`
		} `json:"statistics"`
		Subscribers map[string]struct {
			Subscribers []struct {
				Site string `json:"site"`
			} `json:"subscribers"`
		} `json:"subscribers"`
	} `json:"query"`
}

func (c *Client) get(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, params url.Values) (*apiResponse, error) {
	params.Set("format", "json")
	params.Set("formatversion", "2")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint,
		strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*apiResponse, error) {
	if c.oauthToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.oauthToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var out apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode api response: %w", err)
	}
	if out.Error != nil {
		return nil, out.Error
	}
	return &out, nil
}

// ReadState returns the live protection of an item page.
//
// The API exposes the protection shape, not the policy behind it, so the
// mapping is shape-based: no restriction is None, the exact indefinite
// edit=autoconfirmed restriction this engine sets is HighlyUsed, and any
// other restriction combination is OtherSemi. A page that does not exist
// is an error; the executor records it as a failed item.
func (c *Client) ReadState(ctx context.Context, itemID string) (protect.ProtectionKind, error) {
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"prop":   {"info"},
		"inprop": {"protection"},
		"titles": {itemID},
	})
	if err != nil {
		return "", fmt.Errorf("read protection of %s: %w", itemID, err)
	}
	if len(resp.Query.Pages) != 1 {
		return "", fmt.Errorf("read protection of %s: expected one page, got %d", itemID, len(resp.Query.Pages))
	}
	page := resp.Query.Pages[0]
	if page.Missing {
		return "", fmt.Errorf("read protection of %s: page does not exist", itemID)
	}

	if len(page.Protection) == 0 {
		return protect.ProtectionNone, nil
	}
	if len(page.Protection) == 1 {
		p := page.Protection[0]
		if p.Type == "edit" && p.Level == "autoconfirmed" && p.Expiry == "infinity" {
			return protect.ProtectionHighlyUsed, nil
		}
	}
	return protect.ProtectionOtherSemi, nil
}

// Protect applies the indefinite highly-used semi-protection.
func (c *Client) Protect(ctx context.Context, itemID string) error {
	return c.protect(ctx, itemID, "edit=autoconfirmed", "infinity", protectReason)
}

// Unprotect clears the edit restriction.
func (c *Client) Unprotect(ctx context.Context, itemID string) error {
	return c.protect(ctx, itemID, "edit=all", "", unprotectReason)
}

func (c *Client) protect(ctx context.Context, itemID, protections, expiry, reason string) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("change protection of %s: %w", itemID, err)
	}
	params := url.Values{
		"action":      {"protect"},
		"title":       {itemID},
		"protections": {protections},
		"reason":      {reason},
		"token":       {token},
	}
	if expiry != "" {
		params.Set("expiry", expiry)
	}
	if _, err := c.post(ctx, params); err != nil {
		return fmt.Errorf("change protection of %s: %w", itemID, err)
	}
	c.logger.Debug("protection changed",
		zap.String("item", itemID), zap.String("protections", protections))
	return nil
}

// SavePage writes a page's wikitext, used for the run report.
func (c *Client) SavePage(ctx context.Context, title, text, summary string) error {
	token, err := c.token(ctx)
	if err != nil {
		return fmt.Errorf("save %s: %w", title, err)
	}
	_, err = c.post(ctx, url.Values{
		"action":  {"edit"},
		"title":   {title},
		"text":    {text},
		"summary": {summary},
		"minor":   {"1"},
		"token":   {token},
	})
	if err != nil {
		return fmt.Errorf("save %s: %w", title, err)
	}
	return nil
}

// TotalItems returns the wiki's content page count.
func (c *Client) TotalItems(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"siteinfo"},
		"siprop": {"statistics"},
	})
	if err != nil {
		return 0, fmt.Errorf("site statistics: %w", err)
	}
	return resp.Query.Statistics.Articles, nil
}

// SubscriberCount returns the number of distinct sites subscribed to the
// item's data.
func (c *Client) SubscriberCount(ctx context.Context, itemID string) (int, error) {
	resp, err := c.get(ctx, url.Values{
		"action":       {"query"},
		"list":         {"wbsubscribers"},
		"wblsentities": {itemID},
		"wblslimit":    {"500"},
	})
	if err != nil {
		return 0, fmt.Errorf("subscribers of %s: %w", itemID, err)
	}
	entry, ok := resp.Query.Subscribers[itemID]
	if !ok {
		return 0, nil
	}
	return len(entry.Subscribers), nil
}

// token returns the cached CSRF token, fetching it on first use.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.csrfToken != "" {
		return c.csrfToken, nil
	}
	resp, err := c.get(ctx, url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {"csrf"},
	})
	if err != nil {
		return "", fmt.Errorf("fetch csrf token: %w", err)
	}
	if resp.Query.Tokens.CSRFToken == "" {
		return "", fmt.Errorf("fetch csrf token: empty token in response")
	}
	c.csrfToken = resp.Query.Tokens.CSRFToken
	return c.csrfToken, nil
}
