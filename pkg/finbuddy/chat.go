package finbuddy

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Chat sends a message to the backend's portfolio assistant and returns its
// reply. The model credentials live on the backend.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("message is required")
	}

	in := struct {
		Message string `json:"message"`
	}{message}
	var out struct {
		Reply string `json:"reply"`
	}
	if err := c.call(ctx, http.MethodPost, "/ai/chat", in, &out); err != nil {
		return "", err
	}
	return out.Reply, nil
}
