package sdk

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// JobError is one failed row of an import job.
type JobError struct {
	Row     int    `json:"row"`
	Name    string `json:"name"`
	Message string `json:"message"`
}

// JobSkip is one skipped row of an import job (duplicate).
type JobSkip struct {
	Row    int    `json:"row"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

// Job is the status of one CSV bulk import run.
type Job struct {
	ID         string     `json:"id"`
	State      string     `json:"state"`
	Total      int        `json:"total"`
	Processed  int        `json:"processed"`
	Succeeded  int        `json:"succeeded"`
	Results    []string   `json:"results,omitempty"`
	Errors     []JobError `json:"errors,omitempty"`
	Skipped    []JobSkip  `json:"skipped,omitempty"`
	Failure    string     `json:"failure,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Finished reports whether the job reached a terminal state.
func (j *Job) Finished() bool {
	switch j.State {
	case "completed", "cancelled", "failed":
		return true
	}
	return false
}

// StartImport submits a CSV payload and returns the job ID.
func (c *Client) StartImport(ctx context.Context, csvData []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/import", bytes.NewReader(csvData))
	if err != nil {
		return "", fmt.Errorf("carlens: build request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	var resp struct {
		JobID string `json:"jobId"`
	}
	if err := c.do(req, &resp); err != nil {
		return "", err
	}
	return resp.JobID, nil
}

// Job fetches one import job by ID.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	var j Job
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/import/jobs/"+url.PathEscape(id), nil, &j); err != nil {
		return nil, err
	}
	return &j, nil
}

// Jobs lists tracked import jobs, newest first.
func (c *Client) Jobs(ctx context.Context) ([]Job, error) {
	var resp struct {
		Jobs []Job `json:"jobs"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/import/jobs", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}

// CancelJob cancels a pending or running import job.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/v1/import/jobs/"+url.PathEscape(id), nil, nil)
}

// WaitJob polls an import job until it finishes or ctx is done.
func (c *Client) WaitJob(ctx context.Context, id string, interval time.Duration) (*Job, error) {
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		j, err := c.Job(ctx, id)
		if err != nil {
			return nil, err
		}
		if j.Finished() {
			return j, nil
		}
		select {
		case <-ctx.Done():
			return j, ctx.Err()
		case <-ticker.C:
		}
	}
}
