package delhivery

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

// CheckPincode queries coverage for a delivery pincode.
// GET /c/api/pin-codes/json?filter_codes={pin}
func (c *HTTPAPIClient) CheckPincode(ctx context.Context, token, pincode string) (*PincodeResponse, error) {
	path := "/c/api/pin-codes/json?filter_codes=" + url.QueryEscape(pincode)

	resp, err := c.doRequest(ctx, http.MethodGet, path, token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result PincodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pincode response: %w", err)
	}
	return &result, nil
}

// CreateWarehouse registers a pickup warehouse.
// POST /api/backend/clientwarehouse/create/
func (c *HTTPAPIClient) CreateWarehouse(ctx context.Context, token string, req *WarehouseRequest) (*WarehouseResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/backend/clientwarehouse/create/", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result WarehouseResponse
	// Delhivery reports duplicate warehouses inside a 400 payload; decode
	// before rejecting on status so the adapter can pattern-match the error.
	if err := json.Unmarshal(body, &result); err == nil && (result.Success || result.Error != "") {
		return &result, nil
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseErrorBody(resp.StatusCode, body)
	}
	return &result, nil
}

// CreateManifest books shipments.
// POST /api/cmu/create.json  (body is format=json&data={...})
func (c *HTTPAPIClient) CreateManifest(ctx context.Context, token string, req *ManifestRequest) (*ManifestResponse, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	form := url.Values{}
	form.Set("format", "json")
	form.Set("data", string(payload))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/cmu/create.json", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Token "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result ManifestResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode manifest response: %w", err)
	}
	return &result, nil
}

// RequestPickup schedules a pickup.
// POST /fm/request/new/
func (c *HTTPAPIClient) RequestPickup(ctx context.Context, token string, req *PickupRequest) (*PickupResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/fm/request/new/", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, c.parseError(resp)
	}

	var result PickupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pickup response: %w", err)
	}
	return &result, nil
}

// EditPackage mutates a package.
// POST /api/p/edit
func (c *HTTPAPIClient) EditPackage(ctx context.Context, token string, req *EditRequest) (*EditResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/p/edit", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result EditResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode edit response: %w", err)
	}
	return &result, nil
}

// Track fetches scan history.
// GET /api/v1/packages/json?waybill={wb}
func (c *HTTPAPIClient) Track(ctx context.Context, token, waybill string) (*TrackResponse, error) {
	path := "/api/v1/packages/json?waybill=" + url.QueryEscape(waybill)

	resp, err := c.doRequest(ctx, http.MethodGet, path, token, nil)
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

// UpdateNDR pushes a non-delivery instruction.
// POST /api/p/update
func (c *HTTPAPIClient) UpdateNDR(ctx context.Context, token string, req *NDRRequest) (*NDRResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/api/p/update", token, req)
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

// doRequest performs a JSON HTTP request with the Delhivery token header.
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
	req.Header.Set("Authorization", "Token "+token)
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
		if apiErr.Code == "" {
			apiErr.Code = fmt.Sprintf("HTTP_%d", statusCode)
		}
		return &apiErr
	}

	var simpleErr struct {
		Error string `json:"error"`
		RMK   string `json:"rmk"`
	}
	if err := json.Unmarshal(body, &simpleErr); err == nil {
		msg := simpleErr.Error
		if msg == "" {
			msg = simpleErr.RMK
		}
		if msg != "" {
			return &APIError{
				Code:    fmt.Sprintf("HTTP_%d", statusCode),
				Message: msg,
			}
		}
	}

	return &APIError{
		Code:    fmt.Sprintf("HTTP_%d", statusCode),
		Message: string(body),
	}
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
