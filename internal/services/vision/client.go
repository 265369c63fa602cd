package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DefaultEndpoint is the Google Cloud Vision annotate method
const DefaultEndpoint = "https://vision.googleapis.com/v1/images:annotate"

// maxImageSize bounds the downloaded photo; Vision rejects larger inline images
const maxImageSize = 20 << 20

// Client runs TEXT_DETECTION on images addressed by URL
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Vision client. An empty endpoint selects DefaultEndpoint.
func NewClient(endpoint, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// ExtractText downloads the image at imageURL and returns the full detected text.
// An image without text yields an empty string and no error.
func (c *Client) ExtractText(ctx context.Context, imageURL string) (string, error) {
	content, err := c.download(ctx, imageURL)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(annotateRequest{
		Requests: []imageRequest{{
			Image:    image{Content: base64.StdEncoding.EncodeToString(content)},
			Features: []feature{{Type: "TEXT_DETECTION"}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to encode request: %v", ErrInternal, err)
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: unexpected status code %d: %s", ErrInvalidResponse, resp.StatusCode, string(raw))
	}

	var result annotateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	if len(result.Responses) == 0 {
		return "", fmt.Errorf("%w: empty responses", ErrInvalidResponse)
	}

	first := result.Responses[0]
	if first.Error != nil {
		return "", fmt.Errorf("%w: %d %s", ErrInvalidResponse, first.Error.Code, first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		c.logger.Debug("No text detected", zap.Int("image_bytes", len(content)))
		return "", nil
	}
	return first.FullTextAnnotation.Text, nil
}

func (c *Client) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create image request: %v", ErrInternal, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to download image: %v", ErrInternal, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: image download returned %d", ErrInvalidResponse, resp.StatusCode)
	}

	content, err := io.ReadAll(io.LimitReader(resp.Body, maxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read image: %v", ErrInternal, err)
	}
	if len(content) > maxImageSize {
		return nil, fmt.Errorf("%w: image exceeds %d bytes", ErrInvalidResponse, maxImageSize)
	}
	return content, nil
}
