package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://api.mercadopago.com"

// MercadoPagoClient — HTTP-клиент Checkout Pro API Mercado Pago.
type MercadoPagoClient struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

func NewMercadoPagoClient(accessToken string) *MercadoPagoClient {
	return &MercadoPagoClient{
		accessToken: accessToken,
		baseURL:     defaultBaseURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
	}
}

type preferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
}

type preferenceBackURLs struct {
	Success string `json:"success"`
	Failure string `json:"failure"`
	Pending string `json:"pending"`
}

type preferencePayload struct {
	Items             []preferenceItem   `json:"items"`
	Payer             map[string]string  `json:"payer"`
	BackURLs          preferenceBackURLs `json:"back_urls"`
	NotificationURL   string             `json:"notification_url"`
	ExternalReference string             `json:"external_reference"`
}

func (c *MercadoPagoClient) CreatePreference(ctx context.Context, req PreferenceRequest) (*Preference, error) {
	payload := preferencePayload{
		Items: []preferenceItem{{
			ID:         "riffacoin_package",
			Title:      req.Title,
			Quantity:   1,
			UnitPrice:  float64(req.AmountBRLCents) / 100,
			CurrencyID: "BRL",
		}},
		Payer: map[string]string{"email": req.PayerEmail},
		BackURLs: preferenceBackURLs{
			Success: req.SuccessURL,
			Failure: req.FailureURL,
			Pending: req.PendingURL,
		},
		NotificationURL:   req.NotificationURL,
		ExternalReference: req.ExternalReference,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal preference payload: %w", err)
	}

	var pref Preference
	if err := c.do(ctx, http.MethodPost, "/checkout/preferences", bytes.NewReader(body), &pref); err != nil {
		return nil, err
	}
	return &pref, nil
}

type paymentResponse struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	ExternalReference string      `json:"external_reference"`
	PaymentMethodID   string      `json:"payment_method_id"`
	Card              struct {
		LastFourDigits string `json:"last_four_digits"`
	} `json:"card"`
}

func (c *MercadoPagoClient) GetPayment(ctx context.Context, paymentID string) (*PaymentInfo, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}
	return &PaymentInfo{
		ID:                resp.ID.String(),
		Status:            resp.Status,
		ExternalReference: resp.ExternalReference,
		PaymentMethodID:   resp.PaymentMethodID,
		CardLastFour:      resp.Card.LastFourDigits,
	}, nil
}

func (c *MercadoPagoClient) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}
	return nil
}
