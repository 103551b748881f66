package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"products-dashboard/internal/models"
)

const (
	DefaultAPIBaseURL = "https://api.escuelajs.co/api/v1"
	DefaultAPITimeout = 15 * time.Second

	// maxErrorBody caps how much of a failed response is kept in APIError
	maxErrorBody = 4096
)

// ProductsAPIClient talks to the remote products API that owns the records
type ProductsAPIClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *logrus.Entry
}

// NewProductsAPIClient creates a client. An empty baseURL uses the public API.
func NewProductsAPIClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *ProductsAPIClient {
	if baseURL == "" {
		baseURL = DefaultAPIBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}
	if logger == nil {
		logger = logrus.New()
	}

	return &ProductsAPIClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger.WithField("component", "products_api_client"),
	}
}

// WithHTTPClient swaps the transport, mainly for tests
func (c *ProductsAPIClient) WithHTTPClient(httpClient *http.Client) *ProductsAPIClient {
	c.httpClient = httpClient
	return c
}

// BaseURL returns the API root without a trailing slash
func (c *ProductsAPIClient) BaseURL() string {
	return c.baseURL
}

// UpdateProduct sends PUT /products/{id} and returns the record the API confirmed
func (c *ProductsAPIClient) UpdateProduct(ctx context.Context, id models.ProductID, payload models.ProductPayload) (*models.Product, error) {
	var product models.Product
	path := "/products/" + url.PathEscape(id.String())
	if err := c.do(ctx, http.MethodPut, path, payload, &product); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"title":      product.Title,
	}).Info("Product updated")
	return &product, nil
}

// CreateProduct sends POST /products/ and returns the created record
func (c *ProductsAPIClient) CreateProduct(ctx context.Context, payload models.ProductPayload) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodPost, "/products/", payload, &product); err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"product_id": product.ID,
		"title":      product.Title,
	}).Info("Product created")
	return &product, nil
}

// ListCategories sends GET /categories
func (c *ProductsAPIClient) ListCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = []models.Category{}
	}
	return categories, nil
}

func (c *ProductsAPIClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).Error("Products API request failed")
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"latency": time.Since(start).String(),
	}).Debug("Products API response")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &models.APIError{
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(respBody)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
