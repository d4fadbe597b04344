// Package shopify implements the GraphQL bulk-operation surface the
// importer needs: start a bulk query, poll it, stream the JSONL result.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"catalog-sync-service/internal/models"
)

const defaultAPIVersion = "2024-01"

// BulkOperation mirrors Shopify's currentBulkOperation node
type BulkOperation struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ErrorCode   string `json:"errorCode"`
	ObjectCount string `json:"objectCount"`
	URL         string `json:"url"`
}

// BulkOperationFailedError is returned when Shopify reports a terminal
// non-success status for a bulk operation.
type BulkOperationFailedError struct {
	Status    string
	ErrorCode string
}

func (e *BulkOperationFailedError) Error() string {
	return fmt.Sprintf("bulk operation ended with status %s (error code %s)", e.Status, e.ErrorCode)
}

// BulkOperationTimeoutError is returned when polling exceeds the
// configured overall timeout.
type BulkOperationTimeoutError struct {
	Elapsed time.Duration
}

func (e *BulkOperationTimeoutError) Error() string {
	return fmt.Sprintf("bulk operation did not complete within %s", e.Elapsed)
}

// Client is a per-shop bulk-operations client. Shopify throttles
// GraphQL by cost; 2 rps keeps the bulk surface safely under it.
type Client struct {
	shopDomain  string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
	limiter     *rate.Limiter
}

// NewClient creates a bulk client from a marketplace config
func NewClient(cfg *models.MarketplaceConfig) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	return &Client{
		shopDomain:  cfg.ShopDomain,
		accessToken: cfg.AccessToken,
		apiVersion:  version,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(2), 4),
	}
}

func (c *Client) graphqlURL() string {
	return fmt.Sprintf("https://%s/admin/api/%s/graphql.json", c.shopDomain, c.apiVersion)
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *Client) graphql(ctx context.Context, query string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shopify graphql returned %d: %s", resp.StatusCode, data)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("decoding graphql response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("shopify graphql error: %s", envelope.Errors[0].Message)
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("decoding graphql data: %w", err)
		}
	}
	return nil
}

// ProductsBulkQuery builds the bulk query pulling products with their
// variants and images, optionally filtered by product type.
func ProductsBulkQuery(productType string) string {
	search := ""
	if productType != "" {
		search = fmt.Sprintf(`(query: "product_type:%s")`, productType)
	}
	return fmt.Sprintf(`
    {
      products%s {
        edges {
          node {
            id
            title
            handle
            productType
            vendor
            tags
            variants {
              edges {
                node {
                  id
                  sku
                  title
                  price
                  barcode
                }
              }
            }
            images {
              edges {
                node {
                  id
                  url
                  altText
                }
              }
            }
          }
        }
      }
    }`, search)
}

// StartBulkOperation submits a bulk query run
func (c *Client) StartBulkOperation(ctx context.Context, query string) (*BulkOperation, error) {
	mutation := fmt.Sprintf(`
    mutation {
      bulkOperationRunQuery(query: %s) {
        bulkOperation { id status }
        userErrors { field message }
      }
    }`, strconvQuote(query))

	var out struct {
		BulkOperationRunQuery struct {
			BulkOperation *BulkOperation `json:"bulkOperation"`
			UserErrors    []struct {
				Message string `json:"message"`
			} `json:"userErrors"`
		} `json:"bulkOperationRunQuery"`
	}
	if err := c.graphql(ctx, mutation, &out); err != nil {
		return nil, err
	}
	if len(out.BulkOperationRunQuery.UserErrors) > 0 {
		return nil, fmt.Errorf("bulk operation rejected: %s", out.BulkOperationRunQuery.UserErrors[0].Message)
	}
	if out.BulkOperationRunQuery.BulkOperation == nil {
		return nil, fmt.Errorf("bulk operation rejected: no operation returned")
	}
	return out.BulkOperationRunQuery.BulkOperation, nil
}

// CurrentOperation fetches the shop's current bulk operation state
func (c *Client) CurrentOperation(ctx context.Context) (*BulkOperation, error) {
	query := `
    {
      currentBulkOperation {
        id
        status
        errorCode
        objectCount
        url
      }
    }`

	var out struct {
		CurrentBulkOperation *BulkOperation `json:"currentBulkOperation"`
	}
	if err := c.graphql(ctx, query, &out); err != nil {
		return nil, err
	}
	return out.CurrentBulkOperation, nil
}

// WaitForCompletion polls the current operation on a fixed interval
// until it completes, fails or the overall timeout elapses.
func (c *Client) WaitForCompletion(ctx context.Context, interval, timeout time.Duration) (*BulkOperation, error) {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		op, err := c.CurrentOperation(ctx)
		if err != nil {
			return nil, err
		}
		if op != nil {
			switch op.Status {
			case "COMPLETED":
				return op, nil
			case "FAILED", "CANCELED", "EXPIRED", "ACCESS_DENIED":
				return nil, &BulkOperationFailedError{Status: op.Status, ErrorCode: op.ErrorCode}
			}
		}
		if time.Now().After(deadline) {
			return nil, &BulkOperationTimeoutError{Elapsed: timeout}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download streams the completed operation's JSONL result. The caller
// must close the returned body.
func (c *Client) Download(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("bulk result download returned %d", resp.StatusCode)
	}
	return resp.Body, nil
}

// strconvQuote embeds the bulk query as a GraphQL string literal
func strconvQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}
