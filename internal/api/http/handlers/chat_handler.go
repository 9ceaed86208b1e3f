package handlers

import (
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/time/rate"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/auth"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/repository"
	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

// Question length bounds enforced by the chat route.
const (
	MinQuestionLength = 2
	MaxQuestionLength = 2000
)

// ChatHandler answers mentor questions with canned text and the documents
// indexed for the requested step. Each user gets a token bucket.
type ChatHandler struct {
	docs     repository.DocumentRepository
	perMin   int
	mu       sync.Mutex
	limiters map[domain.ID]*rate.Limiter
}

// NewChatHandler constructs handler. perMinute <= 0 disables limiting.
func NewChatHandler(docs repository.DocumentRepository, perMinute int) *ChatHandler {
	return &ChatHandler{docs: docs, perMin: perMinute, limiters: make(map[domain.ID]*rate.Limiter)}
}

// Ask handles POST /chat/.
func (h *ChatHandler) Ask(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	var req domain.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	question := strings.TrimSpace(req.Question)
	if n := utf8.RuneCountInString(question); n < MinQuestionLength || n > MaxQuestionLength {
		return apperrors.NewDomainError("VALIDATION_FAILED", "A pergunta deve ter entre 2 e 2000 caracteres", http.StatusUnprocessableEntity, nil)
	}
	if !h.allow(principal.User.ID) {
		return apperrors.FromStatus(http.StatusTooManyRequests, "Limite de mensagens atingido. Aguarde um momento.")
	}

	docs, err := h.docs.List(c.UserContext())
	if err != nil {
		return err
	}
	var sources []string
	for _, d := range docs {
		if matchesScope(d.TrailID, req.TrailID) && matchesScope(d.StepID, req.StepID) {
			sources = append(sources, d.Filename)
		}
	}

	answer := "Boa pergunta! Revise os materiais da etapa e registre suas hipóteses no formulário."
	if req.StepID != "" {
		answer = "Sobre a etapa " + req.StepID + ": " + answer
	}
	return c.JSON(dto.Success(dto.ChatAnswer{Answer: answer, Sources: sources}))
}

func (h *ChatHandler) allow(user domain.ID) bool {
	if h.perMin <= 0 {
		return true
	}
	h.mu.Lock()
	limiter, ok := h.limiters[user]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(h.perMin)), h.perMin)
		h.limiters[user] = limiter
	}
	h.mu.Unlock()
	return limiter.Allow()
}

// matchesScope treats "geral" documents as relevant everywhere.
func matchesScope(docScope, requested string) bool {
	return requested == "" || docScope == requested || docScope == domain.DefaultDocumentScope
}
