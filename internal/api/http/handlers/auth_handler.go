package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/api/dto"
	"github.com/spec-kit/tr4ction-console/internal/auth"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/repository"
	apperrors "github.com/spec-kit/tr4ction-console/pkg/util"
)

const minPasswordLength = 6

// AuthHandler exposes login, registration and profile endpoints.
type AuthHandler struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	bcryptCost int
	logger     *zap.Logger
}

// NewAuthHandler constructs handler.
func NewAuthHandler(users repository.UserRepository, tokens *auth.TokenManager, bcryptCost int, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, bcryptCost: bcryptCost, logger: logger}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req domain.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return apperrors.NewValidationError("email e senha são obrigatórios", nil)
	}

	user, err := h.users.GetByEmail(c.UserContext(), req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("Email ou senha incorretos")
		}
		return err
	}
	if err := auth.ComparePassword(user.PasswordHash, req.Password); err != nil || !user.Active {
		return apperrors.NewUnauthorized("Email ou senha incorretos")
	}

	public := user.Public()
	token, _, err := h.tokens.GenerateToken(public)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	h.logger.Info("login", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))
	return c.JSON(dto.TokenResponse{AccessToken: token, TokenType: "bearer", User: public})
}

// Register handles POST /auth/register. Public sign-ups are always founders.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("payload inválido", nil)
	}

	details := map[string]any{}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		details["email"] = "email inválido"
	}
	if len(req.Password) < minPasswordLength {
		details["password"] = "mínimo de 6 caracteres"
	}
	if strings.TrimSpace(req.Name) == "" {
		details["name"] = "obrigatório"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("Dados de cadastro inválidos", details)
	}

	hash, err := auth.HashPassword(req.Password, h.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	record := &repository.UserRecord{
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		CompanyName:  strings.TrimSpace(req.CompanyName),
		Role:         domain.RoleFounder,
		PasswordHash: hash,
		Active:       true,
	}
	if err := h.users.Create(c.UserContext(), record); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return apperrors.NewValidationError("Email já cadastrado", nil)
		}
		return err
	}

	return c.JSON(record.Public())
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("Not authenticated")
	}
	return c.JSON(principal.User)
}
