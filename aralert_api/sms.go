package aralert_api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SMSNotifier sends alerts through the Nexmo (Vonage) SMS REST API.
type SMSNotifier struct {
	endpoint string
	key      string
	secret   string
	from     string
	to       []string
	client   *http.Client
}

type smsResponse struct {
	Messages []struct {
		Status    string `json:"status"`
		ErrorText string `json:"error-text"`
	} `json:"messages"`
}

func NewSMSNotifier(config SMSConfig) *SMSNotifier {
	return &SMSNotifier{
		endpoint: config.Endpoint,
		key:      config.Key,
		secret:   config.Secret,
		from:     config.From,
		to:       config.To,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (n *SMSNotifier) Name() string {
	return "sms"
}

// Notify sends the alert text to every recipient.
func (n *SMSNotifier) Notify(ctx context.Context, alert Alert) error {
	text := ComposeMessage(alert)
	for _, to := range n.to {
		if err := n.send(ctx, to, text, alert.RunID); err != nil {
			return fmt.Errorf("send to %s: %w", to, err)
		}
	}
	return nil
}

func (n *SMSNotifier) send(ctx context.Context, to string, text string, reference string) error {
	form := url.Values{}
	form.Set("api_key", n.key)
	form.Set("api_secret", n.secret)
	form.Set("from", n.from)
	form.Set("to", to)
	form.Set("text", text)
	if reference != "" {
		form.Set("client-ref", reference)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result smsResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if len(result.Messages) == 0 {
		return fmt.Errorf("gateway returned no message status")
	}
	for _, message := range result.Messages {
		if message.Status != "0" {
			return fmt.Errorf("message send failed with status %s: %s", message.Status, message.ErrorText)
		}
	}
	return nil
}
