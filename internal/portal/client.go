package portal

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/voterlookup/epic-extractor/internal/config"
)

const maxBodySize = 4 << 20

var ErrMalformedChallenge = errors.New("malformed captcha challenge")

// StatusError is returned when the portal answers with an unexpected status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: portal returned status %d: %s", e.Op, e.StatusCode, e.Body)
}

type Config struct {
	CaptchaURL     string
	SearchURL      string
	ProxyURL       string
	ProxyUsername  string
	ProxyPassword  string
	UserAgent      string
	CaptchaTimeout time.Duration
	SearchTimeout  time.Duration
	HealthTimeout  time.Duration
}

func ConfigFrom(cfg *config.PortalConfig) Config {
	return Config{
		CaptchaURL:     cfg.CaptchaURL,
		SearchURL:      cfg.SearchURL,
		ProxyURL:       cfg.ProxyURL,
		ProxyUsername:  cfg.ProxyUsername,
		ProxyPassword:  cfg.ProxyPassword,
		UserAgent:      cfg.UserAgent,
		CaptchaTimeout: cfg.CaptchaTimeout.Duration(),
		SearchTimeout:  cfg.SearchTimeout.Duration(),
		HealthTimeout:  cfg.HealthTimeout.Duration(),
	}
}

type Challenge struct {
	Image []byte
	ID    string
}

type Lookup struct {
	Guess       string
	ChallengeID string
	Identifier  string
	RegionCode  string
}

// Client talks to the captcha and search endpoints of the portal. Each call
// runs under its own timeout.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxyURL != "" {
		proxy, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy url: %w", err)
		}
		if cfg.ProxyUsername != "" {
			proxy.User = url.UserPassword(cfg.ProxyUsername, cfg.ProxyPassword)
		}
		transport.Proxy = http.ProxyURL(proxy)
	}

	if cfg.CaptchaTimeout == 0 {
		cfg.CaptchaTimeout = 10 * time.Second
	}
	if cfg.SearchTimeout == 0 {
		cfg.SearchTimeout = 15 * time.Second
	}
	if cfg.HealthTimeout == 0 {
		cfg.HealthTimeout = 5 * time.Second
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Transport: transport},
	}, nil
}

type challengeResponse struct {
	Captcha string `json:"captcha"`
	ID      string `json:"id"`
}

func (c *Client) FetchChallenge(ctx context.Context) (*Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CaptchaTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CaptchaURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	statusCode, body, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch captcha: %w", err)
	}
	if statusCode != http.StatusOK {
		return nil, &StatusError{Op: "fetch captcha", StatusCode: statusCode, Body: truncate(body)}
	}

	var resp challengeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChallenge, err)
	}
	if resp.Captcha == "" || resp.ID == "" {
		return nil, fmt.Errorf("%w: missing image or id", ErrMalformedChallenge)
	}

	image, err := base64.StdEncoding.DecodeString(resp.Captcha)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedChallenge, err)
	}

	return &Challenge{Image: image, ID: resp.ID}, nil
}

type searchRequest struct {
	CaptchaData string `json:"captchaData"`
	CaptchaID   string `json:"captchaId"`
	EpicNumber  string `json:"epicNumber"`
	IsPortal    string `json:"isPortal"`
	SecurityKey string `json:"securityKey"`
	StateCd     string `json:"stateCd"`
}

// Submit posts one lookup and classifies the answer. Transport failures are
// reported as OutcomeTransportError rather than returned.
func (c *Client) Submit(ctx context.Context, lookup Lookup) Outcome {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SearchTimeout)
	defer cancel()

	payload, err := json.Marshal(searchRequest{
		CaptchaData: lookup.Guess,
		CaptchaID:   lookup.ChallengeID,
		EpicNumber:  lookup.Identifier,
		IsPortal:    "true",
		SecurityKey: "na",
		StateCd:     lookup.RegionCode,
	})
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("failed to marshal request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.SearchURL, bytes.NewReader(payload))
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	statusCode, body, err := c.do(req)
	if err != nil {
		return Outcome{Kind: OutcomeTransportError, Err: fmt.Errorf("failed to call search: %w", err)}
	}

	return Classify(statusCode, body)
}

// Ping requests the captcha endpoint and returns the status code.
func (c *Client) Ping(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.HealthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.CaptchaURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	c.setHeaders(req)

	statusCode, _, err := c.do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to reach portal: %w", err)
	}
	return statusCode, nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json")
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return resp.StatusCode, body, nil
}

func truncate(body []byte) string {
	const max = 256
	if len(body) > max {
		return string(body[:max]) + "..."
	}
	return string(body)
}
