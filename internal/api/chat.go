package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"tasksync-cli/internal/model"
)

const assistantUnavailable = "AI assistant is currently unavailable."

// SendChat posts one user message. An empty conversationID starts a new conversation.
func (c *Client) SendChat(ctx context.Context, message, conversationID string) (model.ChatResponse, error) {
	req := model.ChatRequest{Message: message}
	if id := strings.TrimSpace(conversationID); id != "" {
		req.ConversationID = &id
	}
	var out model.ChatResponse
	err := c.do(ctx, request{
		op:          "send message",
		method:      http.MethodPost,
		path:        "/api/chat",
		body:        req,
		auth:        true,
		unavailable: assistantUnavailable,
	}, &out)
	return out, err
}

func (c *Client) ChatHistory(ctx context.Context, conversationID string) ([]model.ChatMessage, error) {
	var out model.ChatHistory
	err := c.do(ctx, request{
		op:     "load chat history",
		method: http.MethodGet,
		path:   "/api/chat/history/" + url.PathEscape(strings.TrimSpace(conversationID)),
		auth:   true,
	}, &out)
	if out.Messages == nil {
		out.Messages = []model.ChatMessage{}
	}
	return out.Messages, err
}
