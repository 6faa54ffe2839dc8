package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const defaultRequestTimeout = 3 * time.Second

// Статусы доставки, сообщаемые источнику события.
const (
	StatusReceived = "received"
	StatusFailed   = "failed"
)

// DeliveryStatusClient отправляет источнику событий статус доставки
// транзакции. Вызовы best-effort: ядро логирует сбой и продолжает работу,
// поэтому клиент не ретраит.
type DeliveryStatusClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Entry
}

// Option настраивает DeliveryStatusClient.
type Option func(*DeliveryStatusClient)

// WithHTTPClient подменяет HTTP-клиент (для тестов).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *DeliveryStatusClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout задаёт таймаут одного запроса.
func WithTimeout(timeout time.Duration) Option {
	return func(c *DeliveryStatusClient) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *DeliveryStatusClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewDeliveryStatusClient создаёт клиент уведомлений о статусе доставки.
func NewDeliveryStatusClient(baseURL string, opts ...Option) *DeliveryStatusClient {
	client := &DeliveryStatusClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     log.WithField("component", "delivery-status-client"),
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type deliveryStatusRequest struct {
	Status string `json:"status"`
}

// NotifyDeliveryStatus отправляет статус доставки транзакции.
func (c *DeliveryStatusClient) NotifyDeliveryStatus(ctx context.Context, tenantID string, transactionNo int, deliveryStatus string) error {
	body, err := json.Marshal(deliveryStatusRequest{Status: deliveryStatus})
	if err != nil {
		return fmt.Errorf("marshal delivery status: %w", err)
	}

	url := fmt.Sprintf("%s/tenants/%s/transactions/%d/delivery-status", c.baseURL, tenantID, transactionNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build delivery status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post delivery status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post delivery status: unexpected status %d", resp.StatusCode)
	}

	c.logger.WithFields(log.Fields{
		"tenant":      tenantID,
		"transaction": transactionNo,
		"status":      deliveryStatus,
	}).Debug("delivery status reported")
	return nil
}

// CloseIdleConnections освобождает keep-alive соединения при остановке процесса.
func (c *DeliveryStatusClient) CloseIdleConnections() {
	c.httpClient.CloseIdleConnections()
}
