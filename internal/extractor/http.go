package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/face"
)

const defaultExtractorURL = "http://localhost:8000"

// Client computes face detections using the extractor HTTP service.
// The service wraps the actual detection/landmarking/descriptor models;
// this side only sees regions and vectors.
type Client struct {
	baseURL string
	dim     int
	client  *http.Client
}

// NewClient creates a new extractor client. dim is the embedding dimension
// the service is expected to produce; responses with a different dimension
// are rejected.
func NewClient(baseURL string, dim int) *Client {
	if baseURL == "" {
		baseURL = defaultExtractorURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		dim:     dim,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Dim returns the configured embedding dimension.
func (c *Client) Dim() int {
	return c.dim
}

// detectResponse represents the response from the extractor service.
type detectResponse struct {
	Faces []struct {
		BBox      []float64 `json:"bbox"`
		Embedding []float32 `json:"embedding"`
	} `json:"faces"`
}

// Detect posts the image to the extractor service and returns the detected
// faces. An empty faces list is a valid response, not an error.
func (c *Client) Detect(ctx context.Context, imageData []byte) ([]face.Detection, error) {
	body, err := c.postMultipartImage(ctx, "/detect", imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	detections := make([]face.Detection, 0, len(resp.Faces))
	for i, f := range resp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("face %d: expected bbox of 4 coordinates, got %d", i, len(f.BBox))
		}
		if len(f.Embedding) != c.dim {
			return nil, fmt.Errorf("face %d: expected embedding of dimension %d, got %d", i, c.dim, len(f.Embedding))
		}
		detections = append(detections, face.Detection{
			Region: face.Region{
				X1: f.BBox[0],
				Y1: f.BBox[1],
				X2: f.BBox[2],
				Y2: f.BBox[3],
			},
			Embedding: f.Embedding,
		})
	}

	return detections, nil
}

// postMultipartImage constructs a multipart form with the image data and
// posts it to the given endpoint.
func (c *Client) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "image.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("extractor error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
