package blob

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/legadoives/transcritor/internal/fault"
)

// HTTPStore talks to a Supabase-style storage API: POST to create an
// object, DELETE to remove it, public URLs as locators.
type HTTPStore struct {
	baseURL    string
	bucket     string
	serviceKey string
	client     *http.Client
}

func NewHTTPStore(baseURL, serviceKey, bucket string) *HTTPStore {
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/") + "/storage/v1",
		bucket:     bucket,
		serviceKey: serviceKey,
		client:     &http.Client{Timeout: 15 * time.Minute},
	}
}

func (s *HTTPStore) Create(ctx context.Context, name string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, name)

	pr := newProgressReader(r, size, progress)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, pr)
	if err != nil {
		return "", fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", contentTypeFor(name))
	if size >= 0 {
		req.ContentLength = size
	}

	resp, err := s.client.Do(req)
	if err != nil {
		// A connection dropped mid-stream leaves a partial object that
		// cannot be resumed; the caller starts a fresh attempt.
		if pr.count > 0 && (size < 0 || pr.count < size) {
			return "", fault.Wrap(fault.KindUploadIncomplete, "upload "+name, err)
		}
		// Nothing reached the server, so no partial object exists. Dial,
		// DNS and TLS failures recover the same way a 5xx does.
		return "", fault.Wrap(fault.KindUpstreamTransient, "upload "+name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fault.FromStatus("upload "+name, resp.StatusCode, string(body))
	}
	if size >= 0 && pr.count < size {
		return "", fault.New(fault.KindUploadIncomplete, "upload "+name,
			"sent %d of %d bytes", pr.count, size)
	}

	return fmt.Sprintf("%s/object/public/%s/%s", s.baseURL, s.bucket, name), nil
}

func (s *HTTPStore) Delete(ctx context.Context, locator string) error {
	name, err := s.objectName(locator)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/object/%s/%s", s.baseURL, s.bucket, name)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return fmt.Errorf("create delete request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.serviceKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delete %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fault.FromStatus("delete "+name, resp.StatusCode, "")
	}
	return nil
}

func (s *HTTPStore) objectName(locator string) (string, error) {
	prefix := fmt.Sprintf("%s/object/public/%s/", s.baseURL, s.bucket)
	if !strings.HasPrefix(locator, prefix) {
		return "", fmt.Errorf("locator %q does not belong to this store", locator)
	}
	return strings.TrimPrefix(locator, prefix), nil
}

func contentTypeFor(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
