package notifications

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrAttachmentFailure marks a snapshot that could not be fetched or saved.
// The notification is still delivered without it.
var ErrAttachmentFailure = errors.New("attachment failure")

const (
	attachmentFileName = "image.jpg"
	maxAttachmentBytes = 10 << 20
)

// fetchAttachment downloads mediaURL into a fresh directory under dir and
// returns the file path.
func fetchAttachment(ctx context.Context, client *http.Client, dir, mediaURL string) (string, error) {
	parsed, err := url.Parse(mediaURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return "", fmt.Errorf("%w: invalid media url %q", ErrAttachmentFailure, mediaURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: build request: %v", ErrAttachmentFailure, err)
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch image: %v", ErrAttachmentFailure, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: image fetch returned %d", ErrAttachmentFailure, resp.StatusCode)
	}

	target := filepath.Join(dir, uuid.NewString())
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("%w: create attachment dir: %v", ErrAttachmentFailure, err)
	}
	path := filepath.Join(target, attachmentFileName)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("%w: create attachment: %v", ErrAttachmentFailure, err)
	}
	written, copyErr := io.Copy(file, io.LimitReader(resp.Body, maxAttachmentBytes+1))
	closeErr := file.Close()
	switch {
	case copyErr != nil:
		err = fmt.Errorf("%w: write attachment: %v", ErrAttachmentFailure, copyErr)
	case closeErr != nil:
		err = fmt.Errorf("%w: close attachment: %v", ErrAttachmentFailure, closeErr)
	case written == 0:
		err = fmt.Errorf("%w: empty image", ErrAttachmentFailure)
	case written > maxAttachmentBytes:
		err = fmt.Errorf("%w: image larger than %d bytes", ErrAttachmentFailure, maxAttachmentBytes)
	}
	if err != nil {
		_ = os.RemoveAll(target)
		return "", err
	}
	return path, nil
}
