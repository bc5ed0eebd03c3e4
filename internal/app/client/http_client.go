package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/exp/slog"

	"invkeeper/internal/app/client/config"
	"invkeeper/internal/domain/sync"
)

type httpClient struct {
	client    *http.Client
	config    *config.Config
	log       *slog.Logger
	baseURL   string
	token     string
	userAgent string
}

func NewHTTPClient(cfg *config.Config, log *slog.Logger) (*httpClient, error) {
	// Установка соединения ограничена отдельно от запроса: висящий
	// сервер определяется быстро, не съедая весь таймаут запроса
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}

	client := &http.Client{
		Timeout: cfg.RequestTimeout,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout: connectTimeout,
			}).DialContext,
			MaxIdleConns:        100,
			IdleConnTimeout:     90 * time.Second,
			DisableCompression:  false,
			DisableKeepAlives:   false,
			MaxIdleConnsPerHost: 10,
		},
	}

	// Определяем протокол
	scheme := "http://"
	if cfg.EnableTLS {
		scheme = "https://"
	}
	baseURL := scheme + cfg.ServerAddress

	return &httpClient{
		client:    client,
		config:    cfg,
		log:       log,
		baseURL:   baseURL,
		userAgent: "InvKeeper-Client/1.0",
	}, nil
}

// SetToken устанавливает токен аутентификации
func (h *httpClient) SetToken(token string) {
	h.token = token
}

// HealthCheck проверяет доступность сервера
func (h *httpClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", h.baseURL+"/api/health", nil)
	if err != nil {
		return fmt.Errorf("ошибка создания запроса: %w", err)
	}

	req.Header.Set("User-Agent", h.userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return wrapNetworkErr("health", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("сервер вернул статус: %d", resp.StatusCode)
	}

	return nil
}

// NetworkQuality грубо оценивает качество сети по времени отклика
func (h *httpClient) NetworkQuality(ctx context.Context) NetworkQuality {
	started := time.Now()
	if err := h.HealthCheck(ctx); err != nil {
		return NetworkOffline
	}
	if time.Since(started) > time.Second {
		return NetworkPoor
	}
	return NetworkGood
}

// GetIncremental запрашивает дельту по сущности относительно чекпоинта
func (h *httpClient) GetIncremental(ctx context.Context, entity sync.EntityType, req sync.IncrementalRequest) (*sync.IncrementalResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/"+string(entity)+"/incremental", req)
	if err != nil {
		return nil, err
	}

	var out sync.IncrementalResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// PushChanges отправляет локальные изменения одной сущности
func (h *httpClient) PushChanges(ctx context.Context, entity sync.EntityType, req sync.PushRequest) (*sync.PushResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/"+string(entity)+"/push", req)
	if err != nil {
		return nil, err
	}

	var out sync.PushResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// PushBatch отправляет пакет офлайн-событий
func (h *httpClient) PushBatch(ctx context.Context, req sync.BatchRequest) (*sync.BatchResponse, error) {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/batch", req)
	if err != nil {
		return nil, err
	}

	var out sync.BatchResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// GetServerConflicts запрашивает конфликты, зафиксированные сервером
func (h *httpClient) GetServerConflicts(ctx context.Context) (*sync.GetConflictsResponse, error) {
	resp, err := h.doRequest(ctx, "GET", "/api/sync/conflicts", nil)
	if err != nil {
		return nil, err
	}

	var out sync.GetConflictsResponse
	if err := h.parseResponse(resp, &out); err != nil {
		return nil, err
	}

	return &out, nil
}

// ResolveServerConflict отправляет решение по конфликту на сервер
func (h *httpClient) ResolveServerConflict(ctx context.Context, conflictID string, req sync.ResolveConflictRequest) error {
	resp, err := h.doRequest(ctx, "POST", "/api/sync/conflicts/"+conflictID+"/resolve", req)
	if err != nil {
		return err
	}

	return h.parseResponse(resp, nil)
}

func (h *httpClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("ошибка маршалинга тела запроса: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания запроса: %w", err)
	}

	// Добавляем заголовки
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", h.userAgent)
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	if h.config.DeviceID != "" {
		req.Header.Set("X-Device-ID", h.config.DeviceID)
	}

	h.log.Debug("Отправка запроса",
		"method", method,
		"url", req.URL.String(),
	)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, wrapNetworkErr(method+" "+path, err)
	}

	return resp, nil
}

func (h *httpClient) parseResponse(resp *http.Response, result any) error {
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("ошибка чтения ответа: %w", err)
	}

	h.log.Debug("Получен ответ",
		"status", resp.StatusCode,
	)

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &sync.NetworkError{
			Op:  resp.Request.URL.Path,
			Err: fmt.Errorf("сервер вернул статус %d", resp.StatusCode),
		}
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string `json:"error"`
			Detail string `json:"detail"`
		}
		if err := json.Unmarshal(body, &errResp); err == nil {
			if errResp.Error != "" {
				return fmt.Errorf("ошибка сервера: %s", errResp.Error)
			}
			if errResp.Detail != "" {
				return fmt.Errorf("ошибка сервера: %s", errResp.Detail)
			}
		}
		return fmt.Errorf("ошибка сервера: статус %d", resp.StatusCode)
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("ошибка парсинга ответа: %w", err)
		}
	}

	return nil
}

// wrapNetworkErr помечает транспортную ошибку как сетевую
func wrapNetworkErr(op string, err error) error {
	var netErr net.Error
	timeout := errors.As(err, &netErr) && netErr.Timeout()

	return &sync.NetworkError{
		Op:      op,
		Err:     err,
		Timeout: timeout,
	}
}
