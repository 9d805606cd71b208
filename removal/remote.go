package removal

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/disintegration/imaging"
)

const remoteRequestTimeout = 30 * time.Second

// RemoteRemover submits the photo to the external segmentation service and
// returns the service's cut-out image. The wire contract is opaque: one
// multipart image in, one cut-out image back.
type RemoteRemover struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewRemoteRemover(apiURL, apiKey string) *RemoteRemover {
	return &RemoteRemover{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{Timeout: remoteRequestTimeout},
	}
}

func (r *RemoteRemover) Remove(ctx context.Context, img image.Image) (image.Image, error) {
	if r.apiURL == "" {
		return nil, fmt.Errorf("segmentation API URL not configured")
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("image_file", "photo.png")
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := imaging.Encode(part, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode photo for upload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.apiURL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build segmentation request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Api-Key", r.apiKey)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("segmentation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("segmentation service returned %d: %s", resp.StatusCode, string(detail))
	}

	cutout, err := imaging.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode segmentation response: %w", err)
	}
	return cutout, nil
}
