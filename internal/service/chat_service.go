package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/spec-kit/tr4ction-console/internal/domain"
)

// Question length bounds accepted by the chat endpoint.
const (
	MinQuestionLength = 2
	MaxQuestionLength = 2000
)

// ChatService talks to the mentor agent.
type ChatService struct {
	api API
}

// NewChatService builds the service.
func NewChatService(api API) *ChatService {
	return &ChatService{api: api}
}

// Ask sends a question, optionally scoped to a trail step. A 429 from the
// agent's rate limit comes back as-is.
func (s *ChatService) Ask(ctx context.Context, req domain.ChatRequest) (domain.ChatResponse, error) {
	req.Question = strings.TrimSpace(req.Question)
	if n := utf8.RuneCountInString(req.Question); n < MinQuestionLength || n > MaxQuestionLength {
		return domain.ChatResponse{}, invalid("A pergunta deve ter entre 2 e 2000 caracteres.")
	}

	var out domain.ChatResponse
	err := postData(ctx, s.api, "/chat/", req, &out)
	return out, err
}
