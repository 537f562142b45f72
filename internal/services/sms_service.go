package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// SMSGatewaySender posts text messages to an HTTP SMS gateway.
type SMSGatewaySender struct {
	client *resty.Client
	url    string
}

type smsGatewayRequest struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// NewSMSSender returns a gateway sender, or a log-only sender when the
// gateway URL is empty.
func NewSMSSender(gatewayURL, apiKey string) SMSSender {
	if gatewayURL == "" {
		logrus.Warn("SMS_GATEWAY_URL not configured, SMS will only be logged")
		return LogSMSSender{}
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		client.SetAuthToken(apiKey)
	}

	return &SMSGatewaySender{client: client, url: gatewayURL}
}

func (s *SMSGatewaySender) Send(ctx context.Context, to, body string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(smsGatewayRequest{To: to, Message: body}).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("sms gateway request: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("sms gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// LogSMSSender writes messages to the log instead of sending them.
type LogSMSSender struct{}

func (LogSMSSender) Send(_ context.Context, to, body string) error {
	logrus.WithField("to", to).Debug(body)
	logrus.WithField("to", to).Info("sms delivery skipped (no gateway configured)")
	return nil
}
