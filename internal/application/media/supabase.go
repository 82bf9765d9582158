package media

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SupabaseClient talks to Supabase Storage over its HTTP API.
type SupabaseClient struct {
	BaseURL   string
	SecretKey string
	Bucket    string
	Client    *http.Client
}

var _ Deleter = (*SupabaseClient)(nil)

// NewSupabaseClient returns a client with its own HTTP client, so concurrent requests never share setup.
func NewSupabaseClient(baseURL, secretKey, bucket string) *SupabaseClient {
	return &SupabaseClient{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		Bucket:    bucket,
		Client:    &http.Client{Timeout: 10 * time.Second},
	}
}

type supabaseSignedUploadResponse struct {
	SignedURL      string `json:"signedUrl"`
	SignedURLSnake string `json:"signed_url"`
	URL            string `json:"url"` // relative path returned by upload/sign API
	Path           string `json:"path"`
}

func (c *SupabaseClient) base() (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("supabase: SUPABASE_URL is not set")
	}
	if c.SecretKey == "" {
		return "", fmt.Errorf("supabase: SUPABASE_SECRET_KEY is not set")
	}
	return strings.TrimRight(c.BaseURL, "/"), nil
}

func (c *SupabaseClient) do(ctx context.Context, method, url string, body interface{}) ([]byte, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	// Match @supabase/supabase-js: both apikey and Authorization Bearer (same key)
	req.Header.Set("apikey", c.SecretKey)
	req.Header.Set("Authorization", "Bearer "+c.SecretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyStr := string(respBody)
		// 403 Unauthorized / Invalid Compact JWS = anon key sent as Bearer; storage needs service_role
		if (resp.StatusCode == 400 || resp.StatusCode == 403) &&
			(strings.Contains(bodyStr, "Invalid Compact JWS") || strings.Contains(bodyStr, "Unauthorized")) {
			return nil, fmt.Errorf("supabase storage requires the service_role key, set SUPABASE_SECRET_KEY (raw body: %s)", bodyStr)
		}
		return nil, fmt.Errorf("supabase error: status %d body: %s", resp.StatusCode, bodyStr)
	}
	return respBody, nil
}

// CreateSignedUploadURL returns a one-hour signed URL the client uploads a photo to.
func (c *SupabaseClient) CreateSignedUploadURL(ctx context.Context, path string) (string, error) {
	base, err := c.base()
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/storage/v1/object/upload/sign/%s/%s", base, c.Bucket, path)
	respBody, err := c.do(ctx, http.MethodPost, url, map[string]interface{}{
		"expiresIn": 3600,
		"upsert":    false,
	})
	if err != nil {
		return "", err
	}

	var data supabaseSignedUploadResponse
	if err := json.Unmarshal(respBody, &data); err != nil {
		return "", fmt.Errorf("supabase response decode: %w", err)
	}
	// API can return signedUrl, signed_url, or url (relative)
	if data.SignedURL != "" {
		return data.SignedURL, nil
	}
	if data.SignedURLSnake != "" {
		return data.SignedURLSnake, nil
	}
	if data.URL != "" {
		u := data.URL
		if u[0] != '/' {
			u = "/" + u
		}
		return base + u, nil
	}
	return "", fmt.Errorf("supabase returned no signed URL, body: %s", string(respBody))
}

// PublicURL is where a stored object is served from.
func (c *SupabaseClient) PublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", strings.TrimRight(c.BaseURL, "/"), c.Bucket, path)
}

// DeleteMedia removes the listing's objects in one bulk request.
func (c *SupabaseClient) DeleteMedia(ctx context.Context, listingID uuid.UUID, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	base, err := c.base()
	if err != nil {
		return err
	}
	url := fmt.Sprintf("%s/storage/v1/object/%s", base, c.Bucket)
	if _, err := c.do(ctx, http.MethodDelete, url, map[string]interface{}{"prefixes": keys}); err != nil {
		return fmt.Errorf("delete media for listing %s: %w", listingID, err)
	}
	return nil
}
