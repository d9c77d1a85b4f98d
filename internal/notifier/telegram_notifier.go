// internal/notifier/telegram_notifier.go
package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"price-peak-monitor/internal/config"
	"price-peak-monitor/pkg/logger"
)

const (
	telegramChannel = "telegram"
	// максимальное ожидание при 429, дольше ждать не имеет смысла
	maxRetryAfter = 30 * time.Second
)

// TelegramNotifier отправляет оповещения через Telegram Bot API
type TelegramNotifier struct {
	httpClient *http.Client
	baseURL    string
	chatID     string
}

// NewTelegramNotifier создает отправителя для чата из конфигурации
func NewTelegramNotifier(cfg config.TelegramConfig, timeout time.Duration) *TelegramNotifier {
	apiURL := strings.TrimRight(cfg.APIURL, "/")
	if apiURL == "" {
		apiURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    fmt.Sprintf("%s/bot%s/", apiURL, cfg.BotToken),
		chatID:     cfg.ChatID,
	}
}

func (tn *TelegramNotifier) Name() string {
	return telegramChannel
}

// Notify отправляет sendMessage. При 429 выполняется один повтор после retry_after.
func (tn *TelegramNotifier) Notify(ctx context.Context, message string) error {
	request := map[string]interface{}{
		"chat_id": tn.chatID,
		"text":    message,
	}

	retryAfter, err := tn.sendTelegramRequest(ctx, "sendMessage", request)
	if err != nil && retryAfter > 0 {
		logger.Warn("⚠️ Telegram API rate limit, waiting %s", retryAfter)

		timer := time.NewTimer(retryAfter)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return &DeliveryError{Channel: telegramChannel, Err: ctx.Err()}
		case <-timer.C:
		}
		_, err = tn.sendTelegramRequest(ctx, "sendMessage", request)
	}

	if err != nil {
		return &DeliveryError{Channel: telegramChannel, Err: err}
	}
	return nil
}

// sendTelegramRequest выполняет метод API. retryAfter > 0 только для 429.
func (tn *TelegramNotifier) sendTelegramRequest(ctx context.Context, method string, request map[string]interface{}) (time.Duration, error) {
	jsonData, err := json.Marshal(request)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tn.baseURL+method, bytes.NewReader(jsonData))
	if err != nil {
		return 0, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := tn.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request to %s: %w", method, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}

	var telegramResp struct {
		OK          bool   `json:"ok"`
		ErrorCode   int    `json:"error_code,omitempty"`
		Description string `json:"description,omitempty"`
		Parameters  struct {
			RetryAfter int `json:"retry_after"`
		} `json:"parameters"`
	}

	if err := json.Unmarshal(body, &telegramResp); err != nil {
		return 0, fmt.Errorf("failed to parse response (status %d): %w", resp.StatusCode, err)
	}

	if !telegramResp.OK {
		apiErr := fmt.Errorf("telegram API error %d: %s", telegramResp.ErrorCode, telegramResp.Description)
		if telegramResp.ErrorCode == http.StatusTooManyRequests {
			retryAfter := 5 * time.Second
			if telegramResp.Parameters.RetryAfter > 0 {
				retryAfter = time.Duration(telegramResp.Parameters.RetryAfter) * time.Second
			}
			return min(retryAfter, maxRetryAfter), apiErr
		}
		return 0, apiErr
	}

	return 0, nil
}
