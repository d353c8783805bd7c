package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
)

// UploadObject stores data under bucket/path in the backend's object store
// and returns the public URL. The content type is sniffed from the payload.
func (c *Client) UploadObject(ctx context.Context, bucket, path string, data []byte) (string, error) {
	contentType := mimetype.Detect(data).String()

	uploadURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, bucket, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build storage request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", contentType)
	// Replace any previous object at the same path.
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return "", &Error{Status: resp.StatusCode, Message: extractMessage(body)}
	}
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, bucket, path), nil
}
