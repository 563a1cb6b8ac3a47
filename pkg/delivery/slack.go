package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// SlackSink posts a cycle summary to a Slack incoming webhook. The table is
// sent inside a code block so the columns stay aligned.
type SlackSink struct {
	webhookURL string
	client     *http.Client
}

// NewSlackSink creates a sink for the given incoming-webhook URL.
func NewSlackSink(webhookURL string) *SlackSink {
	return &SlackSink{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *SlackSink) Name() string { return "slack" }

type slackMessage struct {
	Text string `json:"text"`
}

func (s *SlackSink) Deliver(ctx context.Context, artifacts Artifacts) error {
	msg := slackMessage{Text: summaryText(artifacts)}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshaling slack message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("posting to slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, string(payload))
	}
	return nil
}

func summaryText(artifacts Artifacts) string {
	b := artifacts.Bundle
	head := fmt.Sprintf("*Resource recommendations* (%s)\nWindow: %.0fh, buffer: %d%%, containers analyzed: %d, skipped: %d",
		b.GeneratedAt.Format(time.RFC3339), b.Window.Hours(), b.BufferPercent,
		len(b.Recommendations), len(b.Skipped))
	if artifacts.Table == "" {
		return head
	}
	return head + "\n```\n" + artifacts.Table + "```"
}

var _ Sink = (*SlackSink)(nil)
