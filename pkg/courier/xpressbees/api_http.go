package xpressbees

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &HTTPAPIClient{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Login exchanges credentials for a bearer token.
// POST /api/users/login
func (c *HTTPAPIClient) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/users/login", "", req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode login response: %w", err)
	}
	return &result, nil
}

// Serviceability lists services covering a route.
// POST /api/courier/serviceability
func (c *HTTPAPIClient) Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/courier/serviceability", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ServiceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode serviceability response: %w", err)
	}
	return &result, nil
}

// CreateShipment books a shipment with inline consigner details.
// POST /api/shipments2
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, token string, req *ShipmentRequest) (*ShipmentResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/shipments2", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result ShipmentResponse
	// Rejections come back as 4xx with a status=false payload; surface the
	// decoded payload so the adapter can report the vendor's message.
	if err := json.Unmarshal(body, &result); err == nil && (result.Status || result.Message != "") {
		return &result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorBody(resp.StatusCode, body)
	}
	return &result, nil
}

// CancelShipment cancels a booked waybill.
// POST /api/shipments2/cancel
func (c *HTTPAPIClient) CancelShipment(ctx context.Context, token, awb string) (*CancelResponse, error) {
	payload := map[string]string{"awb": awb}
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/shipments2/cancel", token, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, c.parseError(resp)
	}

	var result CancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode cancel response: %w", err)
	}
	return &result, nil
}

// Track fetches the scan history for a waybill.
// GET /api/shipments2/track/{awb}
func (c *HTTPAPIClient) Track(ctx context.Context, token, awb string) (*TrackResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/api/shipments2/track/"+url.PathEscape(awb), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result TrackResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode tracking response: %w", err)
	}
	return &result, nil
}

// NDRAction submits a non-delivery instruction for a waybill.
// POST /api/ndr/create
func (c *HTTPAPIClient) NDRAction(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/ndr/create", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, c.parseError(resp)
	}

	var result NDRResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode ndr response: %w", err)
	}
	return &result, nil
}

// doRequest performs a JSON HTTP request with the bearer token when set.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path, token string, body interface{}) (*http.Response, error) {
	reqURL := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("User-Agent", "courierhub/1.0")

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)
	return c.parseErrorBody(resp.StatusCode, body)
}

func (c *HTTPAPIClient) parseErrorBody(statusCode int, body []byte) error {
	var apiErr APIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = statusCode
		}
		return &apiErr
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("HTTP %d: %s", statusCode, string(body)),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
