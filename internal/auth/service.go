package auth

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/frahmantamala/habilitation-management/internal"
	"github.com/frahmantamala/habilitation-management/internal/activity"
	"github.com/frahmantamala/habilitation-management/internal/core/events"
)

// Service implements authentication: credential verification, token pair
// issuance, session validation and refresh-token lifecycle. Security events
// go out through the event bus so a broken audit pipe can never fail a
// login or a token check.
type Service struct {
	creds        CredentialStore
	refreshStore RefreshTokenStore
	issuer       *TokenIssuer
	bus          *events.EventBus
	logger       *slog.Logger
	bcryptCost   int
}

func NewService(creds CredentialStore, refreshStore RefreshTokenStore, issuer *TokenIssuer, bus *events.EventBus, logger *slog.Logger, bcryptCost int) *Service {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &Service{
		creds:        creds,
		refreshStore: refreshStore,
		issuer:       issuer,
		bus:          bus,
		logger:       logger,
		bcryptCost:   bcryptCost,
	}
}

// Login verifies credentials and mints a token pair. The refresh token is
// persisted only when the caller asked to be remembered; without that the
// pair goes out with an empty refresh token.
func (s *Service) Login(ctx context.Context, dto LoginDTO, meta RequestMeta) (*User, TokenPair, error) {
	if err := dto.Validate(); err != nil {
		return nil, TokenPair{}, err
	}

	email := strings.ToLower(strings.TrimSpace(dto.Email))

	user, err := s.creds.FindActiveByEmail(ctx, email)
	if err != nil {
		s.auditFailedLogin(ctx, nil, email, meta, "unknown or inactive account")
		return nil, TokenPair{}, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(dto.Password)); err != nil {
		s.auditFailedLogin(ctx, &user.ID, email, meta, "wrong password")
		return nil, TokenPair{}, internal.ErrInvalidCredentials
	}

	pair, err := s.issuer.GenerateTokenPair(user)
	if err != nil {
		return nil, TokenPair{}, internal.NewInternalError("failed to generate tokens", err)
	}

	if dto.RememberMe {
		record := &RefreshToken{
			Token:      pair.RefreshToken,
			UserID:     user.ID,
			DeviceInfo: meta.UserAgent,
			IPAddress:  meta.IP,
			ExpiresAt:  time.Now().Add(s.issuer.RefreshTokenTTL()),
		}
		if err := s.refreshStore.Save(ctx, record); err != nil {
			s.logger.Error("failed to store refresh token", "user_id", user.ID, "error", err)
		}
		if _, err := s.refreshStore.DeleteExpired(ctx); err != nil {
			s.logger.Warn("failed to sweep expired refresh tokens", "error", err)
		}
	} else {
		pair.RefreshToken = ""
	}

	if err := s.creds.UpdateLastLogin(ctx, user.ID); err != nil {
		s.logger.Warn("failed to update last login", "user_id", user.ID, "error", err)
	}

	s.bus.Publish(ctx, activity.NewRecordedEvent(activity.Entry{
		UserID:        &user.ID,
		Type:          activity.TypeAuth,
		Action:        "login",
		Description:   fmt.Sprintf("User %s logged in", user.Email),
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		RequestMethod: meta.Method,
		RequestURL:    meta.URL,
		Success:       true,
		Severity:      activity.SeverityLow,
	}))

	return user, pair, nil
}

// Authenticate converts a raw bearer token into a validated live identity.
// A valid signature is not enough: the user must still exist and be active,
// and the permission list is re-read from the store on every call.
func (s *Service) Authenticate(ctx context.Context, rawToken string, meta RequestMeta) (*Identity, error) {
	claims, err := s.issuer.VerifyAccess(rawToken)
	if err != nil {
		s.auditAuthFailure(ctx, meta, err)
		return nil, err
	}

	identity, err := s.creds.GetIdentity(ctx, claims.ID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}

	return identity, nil
}

// RefreshAccessToken exchanges a valid, stored refresh token for a new
// access token. A refresh token that was never persisted (no remember-me)
// or was deleted at logout cannot be exchanged.
func (s *Service) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return "", internal.ErrRefreshNotFound
	}

	if _, err := s.refreshStore.Find(ctx, refreshToken); err != nil {
		return "", internal.ErrRefreshNotFound
	}

	user, err := s.creds.FindActiveByID(ctx, claims.ID)
	if err != nil {
		return "", internal.ErrUserNotFound
	}

	accessToken, err := s.issuer.GenerateAccessToken(user)
	if err != nil {
		return "", internal.NewInternalError("failed to generate access token", err)
	}

	return accessToken, nil
}

// Logout invalidates the presented refresh token. Deleting an unknown token
// is not an error; logout always succeeds from the client's point of view.
func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.refreshStore.Delete(ctx, refreshToken); err != nil {
		s.logger.Warn("failed to delete refresh token at logout", "error", err)
	}
	return nil
}

func (s *Service) GetProfile(ctx context.Context, userID int64) (*User, error) {
	user, err := s.creds.FindActiveByID(ctx, userID)
	if err != nil {
		return nil, internal.ErrUserNotFound
	}
	return user, nil
}

// HashPassword is used by the seeding command.
func (s *Service) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (s *Service) auditFailedLogin(ctx context.Context, userID *int64, email string, meta RequestMeta, reason string) {
	s.bus.Publish(ctx, activity.NewRecordedEvent(activity.Entry{
		UserID:        userID,
		Type:          activity.TypeSecurity,
		Action:        "login",
		Description:   fmt.Sprintf("Failed login attempt for %s: %s", email, reason),
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		RequestMethod: meta.Method,
		RequestURL:    meta.URL,
		Success:       false,
		Severity:      activity.SeverityHigh,
		Metadata:      map[string]interface{}{"email": email, "reason": reason},
	}))
}

func (s *Service) auditAuthFailure(ctx context.Context, meta RequestMeta, cause error) {
	kind := "unknown"
	if appErr, ok := internal.IsAppError(cause); ok {
		kind = string(appErr.Code)
	}
	s.bus.Publish(ctx, activity.NewRecordedEvent(activity.Entry{
		Type:          activity.TypeSecurity,
		Action:        "Authentication Failed",
		Description:   fmt.Sprintf("Invalid token attempt: %s", cause.Error()),
		IPAddress:     meta.IP,
		UserAgent:     meta.UserAgent,
		RequestMethod: meta.Method,
		RequestURL:    meta.URL,
		Success:       false,
		Severity:      activity.SeverityHigh,
		Metadata:      map[string]interface{}{"error": kind},
	}))
}
