package sdk

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Image is a stored image record.
type Image struct {
	ID           int64     `json:"id"`
	VectorID     string    `json:"vectorId"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	FilePath     string    `json:"filePath"`
	FileSize     int64     `json:"fileSize"`
	MimeType     string    `json:"mimeType"`
	Width        int       `json:"width"`
	Height       int       `json:"height"`
	Tags         []string  `json:"tags"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ImagePage is one page of the image listing.
type ImagePage struct {
	Items  []Image `json:"items"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
}

// Upload stores an image with optional tags and indexes its embedding.
func (c *Client) Upload(ctx context.Context, filename string, data []byte, tags []string) (*Image, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, fmt.Errorf("carlens: build upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("carlens: build upload form: %w", err)
	}
	if len(tags) > 0 {
		if err := mw.WriteField("tags", strings.Join(tags, ",")); err != nil {
			return nil, fmt.Errorf("carlens: build upload form: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("carlens: build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/images", &buf)
	if err != nil {
		return nil, fmt.Errorf("carlens: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var img Image
	if err := c.do(req, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Image fetches one image record by ID.
func (c *Client) Image(ctx context.Context, id int64) (*Image, error) {
	var img Image
	if err := c.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/v1/images/%d", id), nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Images lists stored images with pagination.
func (c *Client) Images(ctx context.Context, offset, limit int) (*ImagePage, error) {
	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))

	var page ImagePage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/images?"+q.Encode(), nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// DeleteImage removes an image, its file and its index entry.
func (c *Client) DeleteImage(ctx context.Context, id int64) error {
	return c.doJSON(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/images/%d", id), nil, nil)
}

// AddTag adds one tag to an image.
func (c *Client) AddTag(ctx context.Context, id int64, tag string) (*Image, error) {
	var img Image
	req := struct {
		Tag string `json:"tag"`
	}{Tag: tag}
	if err := c.doJSON(ctx, http.MethodPost, fmt.Sprintf("/api/v1/images/%d/tags", id), req, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// RemoveTag removes one tag from an image.
func (c *Client) RemoveTag(ctx context.Context, id int64, tag string) (*Image, error) {
	var img Image
	path := fmt.Sprintf("/api/v1/images/%d/tags/%s", id, url.PathEscape(tag))
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// ReplaceTags replaces the full tag set of an image.
func (c *Client) ReplaceTags(ctx context.Context, id int64, tags []string) (*Image, error) {
	var img Image
	req := struct {
		Tags []string `json:"tags"`
	}{Tags: tags}
	if err := c.doJSON(ctx, http.MethodPut, fmt.Sprintf("/api/v1/images/%d/tags", id), req, &img); err != nil {
		return nil, err
	}
	return &img, nil
}
