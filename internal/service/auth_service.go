package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/tr4ction-console/internal/apiclient"
	"github.com/spec-kit/tr4ction-console/internal/domain"
	"github.com/spec-kit/tr4ction-console/internal/events"
	"github.com/spec-kit/tr4ction-console/internal/session"
)

// AuthService coordinates login, registration and logout against the
// backend and the local session store.
type AuthService struct {
	api        API
	store      session.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewAuthService builds the service. The session store is the client's.
func NewAuthService(api API, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	if dispatcher == nil {
		dispatcher = events.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{api: api, store: api.Session(), dispatcher: dispatcher, logger: logger}
}

// Login exchanges credentials for a token and persists token and user
// together. Any previous session is discarded first, so a stale token never
// blocks a fresh login.
func (s *AuthService) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return domain.User{}, invalid("Informe email e senha.")
	}
	if err := s.store.Clear(ctx); err != nil {
		return domain.User{}, storeError(err)
	}

	var resp domain.TokenResponse
	if err := s.api.Post(ctx, "/auth/login", domain.LoginRequest{Email: email, Password: password}, &resp, apiclient.NoRetry()); err != nil {
		return domain.User{}, err
	}
	if resp.AccessToken == "" {
		return domain.User{}, &apiclient.Error{Kind: apiclient.KindDecode, Message: apiclient.MsgInvalidResponse}
	}

	user := resolveUser(resp)
	if err := s.store.Save(ctx, session.Session{Token: resp.AccessToken, User: &user}); err != nil {
		return domain.User{}, storeError(err)
	}

	s.logger.Info("logged in", zap.String("user_id", string(user.ID)), zap.String("role", string(user.Role)))
	s.publish(ctx, events.New(events.EventSessionStarted, events.SessionStartedPayload{User: user}))
	return user, nil
}

// Register creates a founder account and signs it in.
func (s *AuthService) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return domain.User{}, invalid("Informe nome, email e senha.")
	}
	if err := s.api.Post(ctx, "/auth/register", req, nil, apiclient.NoRetry()); err != nil {
		return domain.User{}, err
	}
	return s.Login(ctx, req.Email, req.Password)
}

// Me fetches the profile from the backend and refreshes the stored copy.
func (s *AuthService) Me(ctx context.Context) (domain.User, error) {
	var user domain.User
	if err := s.api.Get(ctx, "/auth/me", &user); err != nil {
		return domain.User{}, err
	}

	current, err := s.store.Load(ctx)
	if err != nil {
		return user, storeError(err)
	}
	if !current.Empty() {
		if err := s.store.Save(ctx, session.Session{Token: current.Token, User: &user}); err != nil {
			return user, storeError(err)
		}
	}
	return user, nil
}

// CurrentUser returns the stored user without a network call, or nil when
// signed out. Sessions saved without a user record fall back to the claims.
func (s *AuthService) CurrentUser(ctx context.Context) (*domain.User, error) {
	current, err := s.store.Load(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	if current.Empty() {
		return nil, nil
	}
	if current.User != nil {
		return current.User, nil
	}
	claims, err := session.DecodeClaims(current.Token)
	if err != nil {
		return nil, nil
	}
	user := claims.User()
	return &user, nil
}

// Logout clears the local session. It is safe to call when signed out.
func (s *AuthService) Logout(ctx context.Context) error {
	current, err := s.store.Load(ctx)
	if err != nil {
		return storeError(err)
	}
	if err := s.store.Clear(ctx); err != nil {
		return storeError(err)
	}
	if current.Empty() {
		return nil
	}
	s.publish(ctx, events.New(events.EventSessionLoggedOut, events.SessionLoggedOutPayload{User: current.User}))
	return nil
}

func (s *AuthService) publish(ctx context.Context, ev events.Event) {
	if err := s.dispatcher.Publish(ctx, ev); err != nil {
		s.logger.Warn("session event handler failed", zap.String("event", string(ev.Type)), zap.Error(err))
	}
}

// resolveUser prefers the embedded user record and fills gaps from the
// token claims and the legacy top-level fields.
func resolveUser(resp domain.TokenResponse) domain.User {
	var user domain.User
	if resp.User != nil {
		user = *resp.User
	}
	if claims, err := session.DecodeClaims(resp.AccessToken); err == nil {
		fromClaims := claims.User()
		if user.ID == "" {
			user.ID = fromClaims.ID
		}
		if user.Email == "" {
			user.Email = fromClaims.Email
		}
		if user.Name == "" {
			user.Name = fromClaims.Name
		}
		if user.Role == "" {
			user.Role = fromClaims.Role
		}
	}
	if user.Role == "" {
		user.Role = resp.Role
	}
	if user.CompanyName == "" {
		user.CompanyName = resp.StartupName
	}
	return user
}

func storeError(err error) error {
	var apiErr *apiclient.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return &apiclient.Error{Kind: apiclient.KindSession, Message: apiclient.MsgSessionStore, Err: err}
}
