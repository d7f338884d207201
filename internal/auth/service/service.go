package service

import (
	"context"
	"errors"
	"time"

	"collection_portal_backend/internal/auth/password"
	"collection_portal_backend/internal/auth/repository"
	"collection_portal_backend/internal/auth/token"
	"collection_portal_backend/internal/events"
	"collection_portal_backend/platform/apperr"
	"collection_portal_backend/platform/config"
	"collection_portal_backend/platform/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const accessTokenType = "access"

type Session struct {
	UserID      uuid.UUID
	SessionID   string
	AccessToken string
	ExpiresAt   time.Time
}

type Service struct {
	repo     repository.UserReader
	cfg      config.AuthServiceConfig
	eventBus events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func New(repo repository.UserReader, cfg config.AuthServiceConfig, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, cfg: cfg, eventBus: eventBus, log: log, now: time.Now}
}

// SignIn checks the credentials and opens a new session. The access token
// carries the session id so per-session state can be keyed on it.
func (s *Service) SignIn(ctx context.Context, email, plainPassword string) (Session, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.DatabaseError("get_user_by_email", err)
		}
		s.log.AuthEvent("sign_in", email, false, "unknown user")
		return Session{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}

	if err := password.Compare(user.PasswordHash, plainPassword); err != nil {
		s.log.AuthEvent("sign_in", email, false, "bad password")
		return Session{}, apperr.Wrap(apperr.KindUnauthorized, ErrInvalidCredentials.Error(), ErrInvalidCredentials)
	}

	sessionID, err := token.GenerateRandomToken(24)
	if err != nil {
		return Session{}, err
	}

	expiresAt := s.now().Add(s.cfg.GetAccessTokenTTL())
	accessToken, err := s.signJWT(user.ID, user.Roles, sessionID, expiresAt)
	if err != nil {
		return Session{}, err
	}

	s.log.AuthEvent("sign_in", email, true, "")
	s.eventBus.Publish(ctx, events.UserLoggedIn{
		BaseEvent: events.NewBaseEvent(),
		UserID:    user.ID,
		SessionID: sessionID,
	})

	return Session{UserID: user.ID, SessionID: sessionID, AccessToken: accessToken, ExpiresAt: expiresAt}, nil
}

func (s *Service) signJWT(userID uuid.UUID, roles []string, sessionID string, expiresAt time.Time) (string, error) {
	if roles == nil {
		roles = []string{}
	}
	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"sid":   sessionID,
		"type":  accessTokenType,
		"roles": roles,
		"exp":   expiresAt.Unix(),
		"iat":   s.now().Unix(),
	}

	tokenObj := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tokenObj.SignedString([]byte(s.cfg.GetJWTAccessSecret()))
}
