package cloudinary

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// Config holds the Cloudinary account credentials. BaseURL is overridable so
// tests can point the client at a local server.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	BaseURL   string
	Timeout   time.Duration
}

// Client talks to the Cloudinary image upload API. It is explicitly
// constructed and passed around; there is no package-level state.
type Client struct {
	cfg        Config
	httpClient *resty.Client
}

// NewClient creates a new Cloudinary client from the given config.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com/v1_1"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: resty.New().SetTimeout(cfg.Timeout),
	}
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload uploads the image at localPath and returns its secure URL.
func (c *Client) Upload(localPath string) (string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	resp, err := c.httpClient.R().
		SetFile("file", localPath).
		SetFormData(map[string]string{
			"api_key":   c.cfg.APIKey,
			"timestamp": timestamp,
			"signature": c.sign("timestamp=" + timestamp),
		}).
		Post(fmt.Sprintf("%s/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName))
	if err != nil {
		return "", fmt.Errorf("cloudinary upload request failed: %w", err)
	}

	var body uploadResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", fmt.Errorf("failed to decode cloudinary upload response: %w", err)
	}
	if resp.IsError() || body.SecureURL == "" {
		msg := body.Error.Message
		if msg == "" {
			msg = resp.Status()
		}
		return "", fmt.Errorf("cloudinary rejected upload: %s", msg)
	}
	return body.SecureURL, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Destroy deletes the image with the given public ID. A "not found" result
// is treated as success so repeated deletions stay idempotent.
func (c *Client) Destroy(publicID string) error {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)

	resp, err := c.httpClient.R().
		SetFormData(map[string]string{
			"public_id": publicID,
			"api_key":   c.cfg.APIKey,
			"timestamp": timestamp,
			"signature": c.sign(fmt.Sprintf("public_id=%s&timestamp=%s", publicID, timestamp)),
		}).
		Post(fmt.Sprintf("%s/%s/image/destroy", c.cfg.BaseURL, c.cfg.CloudName))
	if err != nil {
		return fmt.Errorf("cloudinary destroy request failed: %w", err)
	}

	var body destroyResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return fmt.Errorf("failed to decode cloudinary destroy response: %w", err)
	}
	if resp.IsError() || (body.Result != "ok" && body.Result != "not found") {
		return fmt.Errorf("cloudinary rejected destroy of %s: %s", publicID, body.Result)
	}
	return nil
}

// sign computes the Cloudinary API signature: the SHA-1 hex digest of the
// sorted request parameters concatenated with the API secret.
func (c *Client) sign(params string) string {
	sum := sha1.Sum([]byte(params + c.cfg.APISecret))
	return hex.EncodeToString(sum[:])
}

// PublicIDFromURL derives the public ID from a delivery URL: the last path
// segment with its file extension stripped.
func PublicIDFromURL(url string) string {
	name := path.Base(url)
	return strings.TrimSuffix(name, path.Ext(name))
}
