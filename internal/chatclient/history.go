package chatclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// HistoryClient fetches the stored conversation with a peer over REST. The
// result seeds Store.SetMessages when a conversation is opened.
type HistoryClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

func NewHistoryClient(baseURL, token string, logger *zap.Logger) *HistoryClient {
	return &HistoryClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

// Load returns the history with peerID, deduplicated by message id with the
// first occurrence kept.
func (h *HistoryClient) Load(ctx context.Context, peerID string) ([]ChatMessage, error) {
	url := h.baseURL + "/api/chat/history/" + peerID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building history request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+h.token)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching chat history: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat history request failed: status %d", resp.StatusCode)
	}

	var msgs []ChatMessage
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		return nil, fmt.Errorf("decoding chat history: %w", err)
	}

	seen := make(map[string]bool, len(msgs))
	out := msgs[:0]
	for _, m := range msgs {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		out = append(out, m)
	}
	h.logger.Debug("chat history loaded", zap.String("peer", peerID), zap.Int("messages", len(out)))
	return out, nil
}
