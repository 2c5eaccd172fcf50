package courier

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"rizqara-backend/internal/domain"
	"rizqara-backend/pkg/logger"
)

const serviceName = "steadfast"

// SteadfastClient books parcels through the Steadfast (packzy) merchant API.
type SteadfastClient struct {
	baseURL    string
	apiKey     string
	secretKey  string
	httpClient *http.Client
}

func NewSteadfastClient(baseURL, apiKey, secretKey string, timeout time.Duration) (*SteadfastClient, error) {
	if apiKey == "" || secretKey == "" {
		return nil, errors.New("steadfast api key and secret key are required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &SteadfastClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type createOrderRequest struct {
	Invoice          string  `json:"invoice"`
	RecipientName    string  `json:"recipient_name"`
	RecipientPhone   string  `json:"recipient_phone"`
	RecipientAddress string  `json:"recipient_address"`
	CODAmount        float64 `json:"cod_amount"`
	Note             string  `json:"note,omitempty"`
}

type consignment struct {
	ConsignmentID json.Number `json:"consignment_id"`
	TrackingCode  string      `json:"tracking_code"`
	Status        string      `json:"status"`
}

type createOrderResponse struct {
	Status      int          `json:"status"`
	Message     string       `json:"message"`
	Consignment *consignment `json:"consignment"`
}

type statusResponse struct {
	Status         int    `json:"status"`
	DeliveryStatus string `json:"delivery_status"`
}

func (c *SteadfastClient) BookShipment(ctx context.Context, req domain.ShipmentRequest) (*domain.Shipment, error) {
	body, err := json.Marshal(createOrderRequest{
		Invoice:          req.Invoice,
		RecipientName:    req.RecipientName,
		RecipientPhone:   req.RecipientPhone,
		RecipientAddress: req.RecipientAddress,
		CODAmount:        req.CODAmount,
		Note:             req.Note,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal consignment: %w", err)
	}

	var resp createOrderResponse
	if err := c.do(ctx, http.MethodPost, "/create_order", bytes.NewReader(body), &resp); err != nil {
		return nil, err
	}
	if resp.Consignment == nil || resp.Consignment.TrackingCode == "" {
		return nil, c.fail(fmt.Errorf("no consignment in response (status %d): %s", resp.Status, resp.Message))
	}

	logger.WithContext(ctx).Info().
		Str("invoice", req.Invoice).
		Str("tracking_code", resp.Consignment.TrackingCode).
		Float64("cod_amount", req.CODAmount).
		Msg("Courier consignment created")
	return &domain.Shipment{
		TrackingCode:  resp.Consignment.TrackingCode,
		ConsignmentID: resp.Consignment.ConsignmentID.String(),
		Status:        resp.Consignment.Status,
	}, nil
}

func (c *SteadfastClient) DeliveryStatus(ctx context.Context, trackingCode string) (string, error) {
	var resp statusResponse
	path := "/status_by_trackingcode/" + url.PathEscape(trackingCode)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}
	if resp.DeliveryStatus == "" {
		return "", c.fail(fmt.Errorf("no delivery status for %s (status %d)", trackingCode, resp.Status))
	}
	return resp.DeliveryStatus, nil
}

func (c *SteadfastClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return c.fail(err)
	}
	req.Header.Set("Api-Key", c.apiKey)
	req.Header.Set("Secret-Key", c.secretKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return c.fail(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return c.fail(err)
	}
	if resp.StatusCode != http.StatusOK {
		return c.fail(fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(raw))))
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return c.fail(fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func (c *SteadfastClient) fail(err error) error {
	return &domain.ExternalServiceError{Service: serviceName, Err: err}
}
