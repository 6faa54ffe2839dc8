package statestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos-core/internal/domain"
)

const (
	defaultRequestTimeout = 2 * time.Second
	defaultMaxAttempts    = 2
)

// kvPair — формат записи в теле POST /state/{store}.
type kvPair struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Client — тонкий HTTP-клиент sidecar key-value стора.
// HTTP-клиент создаётся явно на старте процесса и передаётся по ссылке:
// скрытых синглтонов уровня пакета здесь нет.
type Client struct {
	baseURL     string
	storeName   string
	httpClient  *http.Client
	timeout     time.Duration
	maxAttempts int
	logger      *log.Entry
}

// Option настраивает клиент state store.
type Option func(*Client)

// WithTimeout задаёт таймаут одного запроса к sidecar.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithMaxAttempts задаёт количество попыток на транспортные сбои.
func WithMaxAttempts(attempts int) Option {
	return func(c *Client) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
	}
}

// WithHTTPClient подменяет транспорт (например, в тестах).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger задаёт logger клиента.
func WithLogger(logger *log.Entry) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient создаёт клиент sidecar key-value стора.
func NewClient(baseURL, storeName string, options ...Option) *Client {
	client := &Client{
		baseURL:     baseURL,
		storeName:   storeName,
		httpClient:  &http.Client{},
		timeout:     defaultRequestTimeout,
		maxAttempts: defaultMaxAttempts,
		logger:      log.WithField("component", "statestore-client"),
	}
	for _, option := range options {
		option(client)
	}
	return client
}

// Close освобождает ресурсы транспорта. Вызывается при остановке процесса.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Get возвращает значение по ключу. Ответы 204 и 404 трактуются как
// отсутствие ключа (ErrCacheMiss); прочие не-2xx — как сбой яруса.
func (c *Client) Get(ctx context.Context, key string) (json.RawMessage, error) {
	url := fmt.Sprintf("%s/state/%s/%s", c.baseURL, c.storeName, key)

	var body []byte
	err := c.withRetry(ctx, "get", func(attemptCtx context.Context) error {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build get request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound:
			return domain.ErrCacheMiss
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%w: unexpected status %d", domain.ErrCacheUnavailable, resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("%w: read body: %v", domain.ErrCacheUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return body, nil
}

// Save сохраняет значение по ключу (upsert на стороне sidecar).
func (c *Client) Save(ctx context.Context, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal state value: %w", err)
	}

	payload, err := json.Marshal([]kvPair{{Key: key, Value: raw}})
	if err != nil {
		return fmt.Errorf("marshal state payload: %w", err)
	}

	url := fmt.Sprintf("%s/state/%s", c.baseURL, c.storeName)
	return c.withRetry(ctx, "save", func(attemptCtx context.Context) error {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build save request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
			return fmt.Errorf("%w: unexpected status %d", domain.ErrCacheUnavailable, resp.StatusCode)
		}
		return nil
	})
}

// Delete удаляет значение по ключу. Отсутствие ключа ошибкой не считается.
func (c *Client) Delete(ctx context.Context, key string) error {
	url := fmt.Sprintf("%s/state/%s/%s", c.baseURL, c.storeName, key)
	return c.withRetry(ctx, "delete", func(attemptCtx context.Context) error {
		req, err := http.NewRequestWithContext(attemptCtx, http.MethodDelete, url, nil)
		if err != nil {
			return fmt.Errorf("build delete request: %w", err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, err)
		}
		defer resp.Body.Close()

		switch resp.StatusCode {
		case http.StatusNoContent, http.StatusOK, http.StatusNotFound:
			return nil
		default:
			return fmt.Errorf("%w: unexpected status %d", domain.ErrCacheUnavailable, resp.StatusCode)
		}
	})
}

// withRetry выполняет fn с ограниченным числом попыток.
// Повторяются только сбои яруса; промах кэша возвращается сразу.
func (c *Client) withRetry(ctx context.Context, operation string, fn func(context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if errors.Is(err, domain.ErrCacheMiss) {
			return err
		}

		lastErr = err
		if attempt < c.maxAttempts {
			c.logger.WithError(err).WithFields(log.Fields{
				"operation": operation,
				"attempt":   attempt,
			}).Debug("state store request failed, retrying")
		}

		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", domain.ErrCacheUnavailable, ctx.Err())
		}
	}
	return lastErr
}
