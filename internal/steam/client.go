// Package steam wraps the Steam Web API endpoints used by the pipeline:
// game achievement schemas, per-player unlock records, and global
// achievement-unlocker listings.
//
// Conventions:
// - The API key is injected through Config, never read from the process env.
// - All calls accept context.Context and honor cancellation.
// - Throttling responses are retried after a delay; other failures surface
//   as wrapped errors with the endpoint and status attached.
package steam

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/okian/cheevo/pkg/metrics"
)

// Default client configuration constants.
const (
	defaultTimeout     = 30 * time.Second
	defaultRateLimit   = 4 // requests per second
	defaultMaxRetries  = 5
	defaultRetryDelay  = 2 * time.Second
	schemaLanguage     = "english"
	endpointSchema     = "GetSchemaForGame"
	endpointPlayer     = "GetPlayerAchievements"
	endpointUnlockers  = "GetAchievementUnlockers"
	playerStatsPath    = "/ISteamUserStats/GetPlayerAchievements/v0001/"
	gameSchemaPath     = "/ISteamUserStats/GetSchemaForGame/v2/"
	unlockersPath      = "/ISteamUserStats/GetAchievementUnlockers/v1/"
	privateProfileCode = http.StatusForbidden
)

// Config carries the credentials and knobs for a Client.
type Config struct {
	// APIKey authenticates every request.
	APIKey string

	// BaseURL is the Web API root, e.g. "https://api.steampowered.com".
	BaseURL string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RequestsPerSecond caps the outbound request rate.
	RequestsPerSecond float64

	// MaxRetries bounds retries after throttling responses.
	MaxRetries int
}

// AchievementSchema describes one achievement of a game.
type AchievementSchema struct {
	APIName     string
	DisplayName string
	Description string
	Hidden      bool
}

// UnlockRecord is one achievement's unlock status for a player.
// UnlockTime is zero when the achievement has not been earned.
type UnlockRecord struct {
	APIName    string
	Achieved   bool
	UnlockTime int64
}

// Client talks to the Steam Web API. It performs blocking sequential
// requests; there is no fan-out in this batch tool.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	retryDelay time.Duration
}

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithRetryDelay sets the base delay between throttling retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// NewClient creates a Client from the given Config.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = defaultRateLimit
	}
	retries := cfg.MaxRetries
	if retries <= 0 {
		retries = defaultMaxRetries
	}

	c := &Client{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), 1),
		maxRetries: retries,
		retryDelay: defaultRetryDelay,
	}

	// Apply all options
	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// gameSchemaResponse mirrors GetSchemaForGame/v2.
type gameSchemaResponse struct {
	Game struct {
		GameName           string `json:"gameName"`
		AvailableGameStats *struct {
			Achievements []struct {
				Name        string `json:"name"`
				DisplayName string `json:"displayName"`
				Description string `json:"description"`
				Hidden      int    `json:"hidden"`
			} `json:"achievements"`
		} `json:"availableGameStats"`
	} `json:"game"`
}

// GetGameSchema fetches the achievement metadata for a game.
func (c *Client) GetGameSchema(ctx context.Context, appID string) ([]AchievementSchema, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("appid", appID)
	params.Set("l", schemaLanguage)

	body, err := c.get(ctx, endpointSchema, gameSchemaPath, params)
	if err != nil {
		return nil, err
	}

	var resp gameSchemaResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpointSchema, err)
	}

	if resp.Game.AvailableGameStats == nil || resp.Game.AvailableGameStats.Achievements == nil {
		return nil, fmt.Errorf("appid %s: %w", appID, ErrNoAchievementStats)
	}

	achievements := resp.Game.AvailableGameStats.Achievements
	out := make([]AchievementSchema, 0, len(achievements))
	for _, a := range achievements {
		out = append(out, AchievementSchema{
			APIName:     a.Name,
			DisplayName: a.DisplayName,
			Description: a.Description,
			Hidden:      a.Hidden != 0,
		})
	}
	return out, nil
}

// playerAchievementsResponse mirrors GetPlayerAchievements/v1.
type playerAchievementsResponse struct {
	PlayerStats struct {
		Success      bool   `json:"success"`
		Error        string `json:"error"`
		Achievements []struct {
			APIName    string `json:"apiname"`
			Achieved   int    `json:"achieved"`
			UnlockTime int64  `json:"unlocktime"`
		} `json:"achievements"`
	} `json:"playerstats"`
}

// GetPlayerAchievements fetches a player's per-achievement unlock records
// for a game. Private profiles yield ErrPrivateProfile; callers treat that
// as empty data, not a failure.
func (c *Client) GetPlayerAchievements(ctx context.Context, steamID, appID string) ([]UnlockRecord, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("appid", appID)
	params.Set("steamid", steamID)

	body, err := c.get(ctx, endpointPlayer, playerStatsPath, params)
	if err != nil {
		return nil, err
	}

	var resp playerAchievementsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", endpointPlayer, err)
	}

	if !resp.PlayerStats.Success {
		// The API reports private profiles as an unsuccessful playerstats
		// payload rather than a transport error.
		return nil, fmt.Errorf("steamid %s: %s: %w", steamID, resp.PlayerStats.Error, ErrPrivateProfile)
	}

	out := make([]UnlockRecord, 0, len(resp.PlayerStats.Achievements))
	for _, a := range resp.PlayerStats.Achievements {
		out = append(out, UnlockRecord{
			APIName:    a.APIName,
			Achieved:   a.Achieved == 1,
			UnlockTime: a.UnlockTime,
		})
	}
	return out, nil
}

// unlockersResponse mirrors the achievement-unlocker listing endpoint.
type unlockersResponse struct {
	Response struct {
		SteamIDs   []string `json:"steamids"`
		NextCursor string   `json:"next_cursor"`
	} `json:"response"`
}

// ListAchievementUnlockers fetches one page of player ids reported as
// having unlocked the given achievement. The cursor is opaque; pass "" for
// the first page. An empty next cursor means the listing is exhausted.
func (c *Client) ListAchievementUnlockers(ctx context.Context, appID, achievementAPIName, cursor string) ([]string, string, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("appid", appID)
	params.Set("achievementname", achievementAPIName)
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	body, err := c.get(ctx, endpointUnlockers, unlockersPath, params)
	if err != nil {
		return nil, "", err
	}

	var resp unlockersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, "", fmt.Errorf("decode %s response: %w", endpointUnlockers, err)
	}

	return resp.Response.SteamIDs, resp.Response.NextCursor, nil
}

// get performs a rate-limited GET with throttling retries and returns the
// response body.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + path + "?" + params.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, fmt.Errorf("create %s request: %w", endpoint, err)
		}

		start := time.Now()
		resp, err := c.httpClient.Do(req)
		if err != nil {
			metrics.RecordAPIRequest(endpoint, "transport_error")
			return nil, fmt.Errorf("%s request failed: %w", endpoint, err)
		}

		metrics.RecordAPIRequest(endpoint, strconv.Itoa(resp.StatusCode))
		metrics.RecordAPIRequestDuration(endpoint, time.Since(start).Seconds())

		switch {
		case resp.StatusCode == http.StatusOK:
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				return nil, fmt.Errorf("read %s response: %w", endpoint, readErr)
			}
			return body, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			_ = resp.Body.Close()
			if attempt >= c.maxRetries {
				return nil, fmt.Errorf("%s: %w after %d attempts", endpoint, ErrThrottled, attempt+1)
			}
			metrics.RecordAPIRetry()
			if err := c.sleep(ctx, retryAfter(resp, c.retryDelay)); err != nil {
				return nil, err
			}

		case resp.StatusCode == privateProfileCode:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: http %d: %w", endpoint, resp.StatusCode, ErrPrivateProfile)

		default:
			_ = resp.Body.Close()
			return nil, fmt.Errorf("%s: %w: http %d", endpoint, ErrUnexpectedStatus, resp.StatusCode)
		}
	}
}

// retryAfter honors the Retry-After header when present, falling back to
// the configured base delay.
func retryAfter(resp *http.Response, fallback time.Duration) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return fallback
}

// sleep waits for d or until ctx is cancelled.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("retry wait: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
