// Package cms is the client for the headless CMS that owns the content
// behind the paywall. It answers slug-existence probes and fetches full
// article bodies through the CMS admin API.
package cms

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// adminAudience is the fixed API version audience claim for admin tokens.
const adminAudience = "/v3/admin/"

// adminTokenTTL is the validity window of a freshly minted admin token.
const adminTokenTTL = 5 * time.Minute

var (
	// ErrInvalidAdminKey means the admin API key is not of the form id:secret
	// with a hex-encoded secret.
	ErrInvalidAdminKey = errors.New("cms: invalid admin API key")
	// ErrUnexpectedStatus means the CMS answered with a non-200 status.
	ErrUnexpectedStatus = errors.New("cms: unexpected response status")
	// ErrEmptyResponse means the CMS answered 200 but carried no post.
	ErrEmptyResponse = errors.New("cms: response contained no posts")
)

// Article is one piece of delivered content.
type Article struct {
	Title     string `json:"title"`
	HTML      string `json:"html"`
	Excerpt   string `json:"excerpt"`
	OriginURL string `json:"origin"`
}

// Client talks to a Ghost-compatible CMS.
type Client struct {
	baseURL   string
	keyID     string
	keySecret []byte
	http      *http.Client
}

// Option customizes the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.http = h
	}
}

// NewClient creates a CMS client for the given base URL and admin API key.
// The key must be "id:secret" with the secret hex-encoded, as issued by the
// CMS admin integration page.
func NewClient(baseURL, adminKey string, opts ...Option) (*Client, error) {
	id, secret, ok := strings.Cut(adminKey, ":")
	if !ok || id == "" || secret == "" {
		return nil, ErrInvalidAdminKey
	}
	raw, err := hex.DecodeString(secret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdminKey, err)
	}

	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		keyID:     id,
		keySecret: raw,
		http:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Exists probes whether the CMS publishes the given slug. The probe is
// unauthenticated; any transport failure is reported as an error so the
// caller can degrade to "not available".
func (c *Client) Exists(ctx context.Context, slug string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+slug, nil)
	if err != nil {
		return false, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK, nil
}

// Fetch retrieves the full article for slug through the authenticated admin
// API.
func (c *Client) Fetch(ctx context.Context, slug string) (*Article, error) {
	token, err := c.adminToken()
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/ghost/api/v3/admin/posts/slug/%s/?formats=html", c.baseURL, slug)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Ghost "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var body struct {
		Posts []struct {
			Title   string `json:"title"`
			HTML    string `json:"html"`
			Excerpt string `json:"excerpt"`
		} `json:"posts"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("cms: decoding response: %w", err)
	}
	if len(body.Posts) == 0 {
		return nil, ErrEmptyResponse
	}

	post := body.Posts[0]
	return &Article{
		Title:     post.Title,
		HTML:      post.HTML,
		Excerpt:   post.Excerpt,
		OriginURL: c.baseURL + "/" + slug,
	}, nil
}

// adminToken mints a short-lived admin API token: HS256, kid header set to the
// key id, audience pinned to the admin API version.
func (c *Client) adminToken() (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(adminTokenTTL).Unix(),
		"aud": adminAudience,
	})
	token.Header["kid"] = c.keyID

	return token.SignedString(c.keySecret)
}
