package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/TIPmigs/sikad-server/internal/config"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// TransientError помечает сбой доставки на стороне оператора, который имеет
// смысл повторить. Классификацией владеет транспортный адаптер: ядро
// рассылки проверяет только тип ошибки, а не текст ответа вендора.
type TransientError struct {
	Reason string
}

func (e *TransientError) Error() string {
	return "notify: transient delivery failure: " + e.Reason
}

// Маркеры временных сбоев в теле ответа вендора
var transientMarkers = []string{
	"temporary failure",
	"temporarily unavailable",
	"telco issues",
	"try again",
}

type smsRequest struct {
	Recipient string `json:"recipient"`
	SenderID  string `json:"sender_id"`
	Type      string `json:"type"`
	Message   string `json:"message"`
}

type smsResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// PhilSMSClient - транспорт отправки SMS через PhilSMS API.
// Исходящие запросы ограничены rate limiter-ом, чтобы не перегружать транспорт.
type PhilSMSClient struct {
	httpClient *http.Client
	apiURL     string
	token      string
	senderID   string
	limiter    *rate.Limiter
	logger     *logrus.Logger
}

func NewPhilSMSClient(cfg *config.Config, logger *logrus.Logger) *PhilSMSClient {
	return &PhilSMSClient{
		httpClient: &http.Client{Timeout: cfg.SMSTimeout},
		apiURL:     cfg.SMSAPIURL,
		token:      cfg.SMSAPIToken,
		senderID:   cfg.SMSSenderID,
		limiter:    rate.NewLimiter(rate.Limit(cfg.SMSRatePerSec), cfg.SMSRatePerSec),
		logger:     logger,
	}
}

// Send отправляет одно сообщение одному получателю. Сетевые ошибки, ответы
// 429/5xx и маркеры временного сбоя в теле ответа возвращаются как
// *TransientError, остальные сбои терминальны.
func (c *PhilSMSClient) Send(ctx context.Context, recipient, message string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("notify: rate limiter: %w", err)
	}

	payload, err := json.Marshal(smsRequest{
		Recipient: recipient,
		SenderID:  c.senderID,
		Type:      "plain",
		Message:   message,
	})
	if err != nil {
		return fmt.Errorf("notify: failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("notify: failed to create sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransientError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return &TransientError{Reason: fmt.Sprintf("failed to read response: %v", err)}
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return &TransientError{Reason: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var parsed smsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("notify: unexpected response (status %d): %s", resp.StatusCode, raw)
	}

	if parsed.Status == "success" {
		return nil
	}
	if isTransientMessage(parsed.Message) {
		return &TransientError{Reason: parsed.Message}
	}
	return fmt.Errorf("notify: delivery rejected: %s", parsed.Message)
}

// isTransientMessage проверяет тело ответа вендора на маркеры временного сбоя
func isTransientMessage(message string) bool {
	lower := strings.ToLower(message)
	for _, marker := range transientMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
