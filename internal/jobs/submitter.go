package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"slate/internal/history"
	"slate/internal/services"
)

// Submitter hands a queued render job to an execution backend.
type Submitter interface {
	Submit(ctx context.Context, job history.RenderJob) error
}

// FarmSubmitter submits render jobs to the render farm's HTTP endpoint.
type FarmSubmitter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

var _ Submitter = (*FarmSubmitter)(nil)

// FarmOption configures a FarmSubmitter.
type FarmOption func(*FarmSubmitter)

// WithFarmHTTPClient overrides the default HTTP client.
func WithFarmHTTPClient(client *http.Client) FarmOption {
	return func(s *FarmSubmitter) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// NewFarmSubmitter creates a render farm submitter.
func NewFarmSubmitter(baseURL, apiKey string, opts ...FarmOption) (*FarmSubmitter, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("render farm url required")
	}
	submitter := &FarmSubmitter{
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(submitter)
	}
	return submitter, nil
}

type submitPayload struct {
	JobID       string   `json:"job_id"`
	PublishID   int64    `json:"publish_id"`
	Take        string   `json:"take"`
	Cameras     []string `json:"cameras"`
	RenderLocal bool     `json:"render_local"`
}

// Submit posts the job to the farm. Response codes are mapped onto the
// service error taxonomy so the worker can decide between requeue and
// operator review.
func (s *FarmSubmitter) Submit(ctx context.Context, job history.RenderJob) error {
	body, err := json.Marshal(submitPayload{
		JobID:       job.ID,
		PublishID:   job.TrackingID,
		Take:        job.Take,
		Cameras:     job.Cameras,
		RenderLocal: job.RenderLocal,
	})
	if err != nil {
		return fmt.Errorf("encode submit payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "farm", "submit", "execute submit request", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return services.Wrap(services.ErrValidation, "farm", "submit",
			fmt.Sprintf("farm rejected job %s with %d", job.ID, resp.StatusCode), nil)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "farm", "submit",
			fmt.Sprintf("farm denied access with %d, check the api key", resp.StatusCode), nil)
	case resp.StatusCode == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "farm", "submit",
			fmt.Sprintf("farm endpoint missing, returned %d", resp.StatusCode), nil)
	default:
		return services.Wrap(services.ErrExternalService, "farm", "submit",
			fmt.Sprintf("farm returned %d", resp.StatusCode), nil)
	}
}
