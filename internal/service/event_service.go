package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"jazzedu_backend/internal/config"
	"jazzedu_backend/pkg/logger"

	"go.uber.org/zap"
)

// EventEmitter 对外事件通知的单一能力接口。发送失败只返回false，
// 永远不会让核心业务事务失败。
type EventEmitter interface {
	Emit(key string, payload map[string]interface{}) bool
}

// WebhookEmitter 把事件POST到配置的webhook地址，超时有上限
type WebhookEmitter struct {
	URL     string
	Timeout time.Duration
	client  *http.Client
}

func NewWebhookEmitter(cfg config.EventsConfig) *WebhookEmitter {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	return &WebhookEmitter{
		URL:     cfg.WebhookURL,
		Timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *WebhookEmitter) Emit(key string, payload map[string]interface{}) bool {
	if e.URL == "" {
		return false
	}

	body := map[string]interface{}{
		"event":   key,
		"payload": payload,
		"sentAt":  time.Now().Format(time.RFC3339),
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return false
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.URL, bytes.NewReader(raw))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		logger.Log.Warn("event webhook failed", zap.String("event", key), zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// NoopEmitter 未配置webhook时使用
type NoopEmitter struct{}

func (NoopEmitter) Emit(key string, payload map[string]interface{}) bool {
	return false
}
