package tracking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// ErrEntityUnavailable indicates the referenced tracking entity is deleted or
// inaccessible.
var ErrEntityUnavailable = errors.New("context entity unavailable")

// Entity is a production-tracking entity with the fields requested from the
// server.
type Entity struct {
	Type   string         `json:"type"`
	ID     int64          `json:"id"`
	Fields map[string]any `json:"fields"`
}

// PublishRequest carries the payload for registering a publish.
type PublishRequest struct {
	Name        string         `json:"name"`
	Path        string         `json:"path"`
	PublishPath string         `json:"publish_path,omitempty"`
	Version     int            `json:"version,omitempty"`
	EntityType  string         `json:"entity_type,omitempty"`
	EntityID    int64          `json:"entity_id,omitempty"`
	TaskID      int64          `json:"task_id,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// PublishRecord is the server's acknowledgment of a registered publish.
type PublishRecord struct {
	ID int64 `json:"id"`
}

// Finder looks up tracking entities by type and id.
type Finder interface {
	FindEntity(ctx context.Context, entityType string, id int64, fields []string) (*Entity, error)
}

// API is the tracking-server surface the publish pipeline consumes.
type API interface {
	Finder
	RegisterPublish(ctx context.Context, req PublishRequest) (*PublishRecord, error)
}

// Client talks to the production tracking server over HTTP. Entity lookups
// are cached with a TTL since validation and template selection may request
// the same entity several times in one run.
type Client struct {
	baseURL    string
	scriptName string
	apiKey     string
	httpClient *http.Client
	entities   *gocache.Cache
}

var _ API = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithEntityCacheTTL sets the entity lookup cache lifetime.
func WithEntityCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		if ttl > 0 {
			c.entities = gocache.New(ttl, 2*ttl)
		}
	}
}

// NewClient creates a tracking client.
func NewClient(baseURL, scriptName, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("tracking base url required")
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("tracking api key required")
	}

	client := &Client{
		baseURL:    baseURL,
		scriptName: strings.TrimSpace(scriptName),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		entities:   gocache.New(5*time.Minute, 10*time.Minute),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// FindEntity fetches an entity with the requested fields. A missing entity
// yields ErrEntityUnavailable.
func (c *Client) FindEntity(ctx context.Context, entityType string, id int64, fields []string) (*Entity, error) {
	entityType = strings.TrimSpace(entityType)
	if entityType == "" {
		return nil, errors.New("entity type must not be empty")
	}

	cacheKey := entityType + "/" + strconv.FormatInt(id, 10) + "?" + strings.Join(fields, ",")
	if cached, ok := c.entities.Get(cacheKey); ok {
		entity := cached.(Entity)
		return &entity, nil
	}

	endpoint, err := url.Parse(fmt.Sprintf("%s/entities/%s/%d", c.baseURL, url.PathEscape(entityType), id))
	if err != nil {
		return nil, fmt.Errorf("parse tracking url: %w", err)
	}
	if len(fields) > 0 {
		params := url.Values{}
		params.Set("fields", strings.Join(fields, ","))
		endpoint.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("%w: %s %d", ErrEntityUnavailable, entityType, id)
	default:
		return nil, fmt.Errorf("tracking entity lookup returned %d", resp.StatusCode)
	}

	var entity Entity
	if err := json.NewDecoder(resp.Body).Decode(&entity); err != nil {
		return nil, fmt.Errorf("decode entity response: %w", err)
	}
	c.entities.SetDefault(cacheKey, entity)
	return &entity, nil
}

// RegisterPublish creates a publish record on the tracking server.
func (c *Client) RegisterPublish(ctx context.Context, publish PublishRequest) (*PublishRecord, error) {
	if strings.TrimSpace(publish.Path) == "" {
		return nil, errors.New("publish path must not be empty")
	}

	body, err := json.Marshal(publish)
	if err != nil {
		return nil, fmt.Errorf("encode publish request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/publishes", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("tracking publish registration returned %d", resp.StatusCode)
	}

	var record PublishRecord
	if err := json.NewDecoder(resp.Body).Decode(&record); err != nil {
		return nil, fmt.Errorf("decode publish response: %w", err)
	}
	if record.ID == 0 {
		return nil, errors.New("tracking server returned publish record without id")
	}
	return &record, nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.scriptName != "" {
		req.Header.Set("X-Script-Name", c.scriptName)
	}
}
