package shiprocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
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
// POST /v1/external/auth/login
func (c *HTTPAPIClient) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/auth/login", "", req)
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

// Serviceability lists couriers able to serve a route.
// GET /v1/external/courier/serviceability
func (c *HTTPAPIClient) Serviceability(ctx context.Context, token string, req *ServiceabilityRequest) (*ServiceabilityResponse, error) {
	q := url.Values{}
	q.Set("pickup_postcode", req.PickupPostcode)
	q.Set("delivery_postcode", req.DeliveryPostcode)
	q.Set("weight", strconv.FormatFloat(req.Weight, 'f', 2, 64))
	cod := "0"
	if req.COD {
		cod = "1"
	}
	q.Set("cod", cod)
	if req.DeclaredValue > 0 {
		q.Set("declared_value", strconv.FormatFloat(req.DeclaredValue, 'f', 2, 64))
	}

	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/external/courier/serviceability/?"+q.Encode(), token, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// 404 means no coverage, which is a defined answer rather than an error.
	if resp.StatusCode == http.StatusNotFound {
		return &ServiceabilityResponse{Status: http.StatusNotFound}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result ServiceabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode serviceability response: %w", err)
	}
	return &result, nil
}

// AddPickupLocation registers a pickup address.
// POST /v1/external/settings/company/addpickup
func (c *HTTPAPIClient) AddPickupLocation(ctx context.Context, token string, req *PickupLocationRequest) (*PickupLocationResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/settings/company/addpickup", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	var result PickupLocationResponse
	// Duplicate locations come back as 422 with a message; surface the
	// decoded payload so the adapter can pattern-match it.
	if err := json.Unmarshal(body, &result); err == nil && (result.Success || result.Message != "") {
		return &result, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorBody(resp.StatusCode, body)
	}
	return &result, nil
}

// CreateOrder creates an adhoc order.
// POST /v1/external/orders/create/adhoc
func (c *HTTPAPIClient) CreateOrder(ctx context.Context, token string, req *OrderRequest) (*OrderResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/orders/create/adhoc", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result OrderResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode order response: %w", err)
	}
	return &result, nil
}

// AssignAWB allocates a waybill to a shipment.
// POST /v1/external/courier/assign/awb
func (c *HTTPAPIClient) AssignAWB(ctx context.Context, token string, shipmentID int64) (*AssignAWBResponse, error) {
	payload := map[string]int64{"shipment_id": shipmentID}
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/courier/assign/awb", token, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result AssignAWBResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode awb response: %w", err)
	}
	return &result, nil
}

// GeneratePickup schedules pickup for shipments.
// POST /v1/external/courier/generate/pickup
func (c *HTTPAPIClient) GeneratePickup(ctx context.Context, token string, req *GeneratePickupRequest) (*GeneratePickupResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/courier/generate/pickup", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseError(resp)
	}

	var result GeneratePickupResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode pickup response: %w", err)
	}
	return &result, nil
}

// CancelOrders cancels orders by ID.
// POST /v1/external/orders/cancel
func (c *HTTPAPIClient) CancelOrders(ctx context.Context, token string, orderIDs []int64) (*CancelResponse, error) {
	payload := map[string][]int64{"ids": orderIDs}
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/orders/cancel", token, payload)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, c.parseError(resp)
	}

	var result CancelResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// Cancellation may return an empty body on success.
		return &CancelResponse{Status: resp.StatusCode}, nil
	}
	return &result, nil
}

// TrackByAWB fetches tracking activities for a waybill.
// GET /v1/external/courier/track/awb/{awb}
func (c *HTTPAPIClient) TrackByAWB(ctx context.Context, token, awb string) (*TrackResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/external/courier/track/awb/"+url.PathEscape(awb), token, nil)
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
// POST /v1/external/ndr/{awb}/action
func (c *HTTPAPIClient) NDRAction(ctx context.Context, token, awb string, req *NDRActionRequest) (*NDRActionResponse, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/external/ndr/"+url.PathEscape(awb)+"/action", token, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, c.parseError(resp)
	}

	var result NDRActionResponse
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
