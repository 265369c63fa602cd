// Package documents fetches the invoice and packing-slip PDFs the shop generates for an order.
package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"salonbot/internal/models"

	"go.uber.org/zap"
)

var (
	// ErrInvalidRequest is returned for an unknown document type or a zero order id
	ErrInvalidRequest = errors.New("invalid document type or order ID")

	// ErrInternal is returned when a request could not be built or sent
	ErrInternal = errors.New("documents client: internal error")

	// ErrInvalidResponse is returned on unexpected status codes or payloads
	ErrInvalidResponse = errors.New("documents client: invalid response")
)

// Fetcher resolves document URLs through a shop endpoint and keeps the PDFs in a local directory
type Fetcher struct {
	endpoint   string
	dir        string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewFetcher creates a fetcher. endpoint answers ?order_id=&document_type= with {"url": "..."}.
func NewFetcher(endpoint, dir string, timeout time.Duration, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		endpoint: endpoint,
		dir:      dir,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// remoteType maps a document to the shop's name for it
func remoteType(docType models.DocumentType) (string, bool) {
	switch docType {
	case models.DocumentInvoice:
		return "invoice", true
	case models.DocumentReceipt:
		return "packing-slip", true
	default:
		return "", false
	}
}

// DocumentPath downloads the document into dir/<type><orderID>.pdf and returns that path
func (f *Fetcher) DocumentPath(ctx context.Context, docType models.DocumentType, orderID int64) (string, error) {
	remote, ok := remoteType(docType)
	if !ok || orderID == 0 {
		return "", ErrInvalidRequest
	}

	fileURL, err := f.fileURL(ctx, remote, orderID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(f.dir, string(docType)+strconv.FormatInt(orderID, 10)+".pdf")
	if err := f.download(ctx, fileURL, path); err != nil {
		return "", err
	}

	f.logger.Info("Order document saved",
		zap.Int64("order_id", orderID),
		zap.String("type", string(docType)),
		zap.String("path", path))
	return path, nil
}

func (f *Fetcher) fileURL(ctx context.Context, remote string, orderID int64) (string, error) {
	query := url.Values{
		"order_id":      {strconv.FormatInt(orderID, 10)},
		"document_type": {remote},
	}

	resp, err := f.get(ctx, f.endpoint+"?"+query.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var payload struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("%w: failed to decode response: %v", ErrInvalidResponse, err)
	}
	if payload.URL == "" {
		return "", fmt.Errorf("%w: no file url for %s", ErrInvalidResponse, remote)
	}
	return payload.URL, nil
}

func (f *Fetcher) download(ctx context.Context, fileURL, path string) error {
	resp, err := f.get(ctx, fileURL)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create documents directory: %w", err)
	}

	tmp := path + ".part"
	file, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create document file: %w", err)
	}
	if _, err := io.Copy(file, resp.Body); err != nil {
		file.Close()
		os.Remove(tmp)
		return fmt.Errorf("%w: failed to download document: %v", ErrInvalidResponse, err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write document: %w", err)
	}
	return os.Rename(tmp, path)
}

func (f *Fetcher) get(ctx context.Context, target string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrInternal, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to execute request: %v", ErrInternal, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: unexpected status code %d", ErrInvalidResponse, resp.StatusCode)
	}
	return resp, nil
}
