// Package catalog implements the HTTP client for the internal catalog
// service: products, mapping profiles, job records, notifications.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"catalog-sync-service/internal/clients"
	"catalog-sync-service/internal/jobctx"
	"catalog-sync-service/internal/models"
)

// Client talks to the internal catalog API. Every request carries the
// service token plus job_id/client_id headers taken from the request
// context, so catalog-side audit logs can attribute calls to jobs.
type Client struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
	limiter      *rate.Limiter
	retrier      *clients.Retrier
}

// NewClient creates a catalog API client. rps bounds outbound request
// rate; the catalog service throttles hard beyond its own limit.
func NewClient(baseURL, serviceToken string, rps int) *Client {
	if rps <= 0 {
		rps = 10
	}
	return &Client{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		limiter:      rate.NewLimiter(rate.Limit(rps), rps*2),
		retrier:      clients.NewRetrier(nil),
	}
}

func (c *Client) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
	}

	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	resp, err := c.retrier.DoHTTP(ctx, method+" "+path, func(ctx context.Context) (*http.Response, error) {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
		req.Header.Set("Content-Type", "application/json")
		if jobID := jobctx.JobID(ctx); jobID != "" {
			req.Header.Set("job_id", jobID)
		}
		if clientID := jobctx.ClientID(ctx); clientID != "" {
			req.Header.Set("client_id", clientID)
		}
		return c.httpClient.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("catalog API %s %s returned %d: %s", method, path, resp.StatusCode, truncate(data, 512))
	}
	return data, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}

// FetchProducts pulls the full product set for the job's scope.
// Filters pass through as query parameters.
func (c *Client) FetchProducts(ctx context.Context, clientID, productTypeID, channel string, filters map[string]string) ([]models.CatalogProduct, error) {
	query := url.Values{}
	query.Set("clientId", clientID)
	query.Set("productTypeId", productTypeID)
	query.Set("channel", channel)
	for k, v := range filters {
		query.Set(k, v)
	}

	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/products/export", query, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var out struct {
		Data []models.CatalogProduct `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding products: %w", err)
	}
	return out.Data, nil
}

func (c *Client) FetchMappingProfile(ctx context.Context, clientID, productTypeID, channel string) (*models.MappingProfile, error) {
	query := url.Values{}
	query.Set("clientId", clientID)
	query.Set("productTypeId", productTypeID)
	query.Set("channel", channel)

	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/mapping-profiles", query, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var out struct {
		Data *models.MappingProfile `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding mapping profile: %w", err)
	}
	return out.Data, nil
}

func (c *Client) FetchClientConfig(ctx context.Context, clientID string) (*models.ClientConstants, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/clients/"+clientID+"/config", nil, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var out struct {
		Data *models.ClientConstants `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding client config: %w", err)
	}
	return out.Data, nil
}

func (c *Client) FetchProductTypeConfig(ctx context.Context, productTypeID string) (*models.ProductTypeConstants, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/product-types/"+productTypeID+"/config", nil, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var out struct {
		Data *models.ProductTypeConstants `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding product type config: %w", err)
	}
	return out.Data, nil
}

func (c *Client) FetchMarketplaceConfig(ctx context.Context, clientID, marketplace string) (*models.MarketplaceConfig, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/clients/"+clientID+"/marketplaces/"+marketplace, nil, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var out struct {
		Data *models.MarketplaceConfig `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding marketplace config: %w", err)
	}
	return out.Data, nil
}

func (c *Client) GetJob(ctx context.Context, jobID string) (*models.TransformationJob, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/api/v1/jobs/"+jobID, nil, nil)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("job %s not found", jobID)
	}
	var out struct {
		Data *models.TransformationJob `json:"data"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decoding job: %w", err)
	}
	return out.Data, nil
}

func (c *Client) UpdateJob(ctx context.Context, jobID string, update models.JobUpdate) error {
	_, err := c.doRequest(ctx, http.MethodPatch, "/api/v1/jobs/"+jobID, nil, update)
	return err
}

// BulkUpdateVariants pushes imported marketplace data back onto
// catalog variants in one batch call.
func (c *Client) BulkUpdateVariants(ctx context.Context, updates []models.VariantUpdate) error {
	body := map[string]interface{}{"updates": updates}
	_, err := c.doRequest(ctx, http.MethodPost, "/api/v1/variants/bulk-update", nil, body)
	return err
}

func (c *Client) SendNotification(ctx context.Context, n models.Notification) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/api/v1/notifications", nil, n)
	return err
}
