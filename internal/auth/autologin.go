package auth

import (
	"context"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/vecinal/backend/internal/models"
	"github.com/vecinal/backend/pkg/apperr"
)

// Notifier appends audit rows and queues best-effort delivery. Implemented by
// the notifications service.
type Notifier interface {
	NotifyCredentials(ctx context.Context, user *models.User, body string)
}

// AutoLoginService issues and redeems single-holder auto-login credentials.
// Issuing a new token for a user supersedes every prior one.
type AutoLoginService struct {
	repo     *Repository
	jwt      *JWTService
	notifier Notifier
	logger   *zap.Logger
}

// NewAutoLoginService creates the auto-login service.
func NewAutoLoginService(repo *Repository, jwt *JWTService, notifier Notifier, logger *zap.Logger) *AutoLoginService {
	return &AutoLoginService{repo: repo, jwt: jwt, notifier: notifier, logger: logger}
}

// Issue generates a fresh auto-login token for the user and upserts the
// single-holder record. The credential email is queued best-effort.
func (s *AutoLoginService) Issue(ctx context.Context, userID int64) (string, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", apperr.FromDB(err, "user not found")
	}

	token, tokenID, err := s.jwt.GenerateAutoLogin(user.Username)
	if err != nil {
		return "", apperr.Wrap(err, "failed to sign auto-login token")
	}
	if err := s.repo.UpsertAutoLoginToken(ctx, user.ID, tokenID); err != nil {
		return "", apperr.FromDB(err, "user not found")
	}

	if s.notifier != nil {
		s.notifier.NotifyCredentials(ctx, user, token)
	}
	s.logger.Info("auto-login token issued", zap.Int64("user_id", user.ID))
	return token, nil
}

// Redeem validates an auto-login token and, on success, exchanges it for a
// regular session. Failure taxonomy: bad signature or expiry is
// Unauthenticated, a superseded record is Gone, allow_entry=false is
// Forbidden.
func (s *AutoLoginService) Redeem(ctx context.Context, tokenString, ip, deviceInfo string) (*models.User, string, error) {
	claims, err := s.jwt.Validate(tokenString)
	if err != nil {
		if err == ErrExpiredToken {
			return nil, "", apperr.Unauthenticated(apperr.CodeTokenExpired, "auto-login token expired")
		}
		return nil, "", apperr.Unauthenticated(apperr.CodeInvalidCredentials, "invalid auto-login token")
	}
	if claims.Type != TokenTypeAutoLogin {
		return nil, "", apperr.Unauthenticated(apperr.CodeInvalidCredentials, "not an auto-login token")
	}

	user, err := s.repo.GetByUsername(ctx, claims.Subject)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", apperr.NotFound(apperr.CodeUserNotFound, "user not found")
		}
		return nil, "", apperr.FromDB(err, "user not found")
	}
	if !user.AllowEntry {
		return nil, "", apperr.Forbidden(apperr.CodeUserNotAllowEntry, "user is not allowed to enter")
	}

	record, err := s.repo.GetAutoLoginToken(ctx, user.ID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, "", apperr.Gone(apperr.CodeAutoLoginSuperseded, "auto-login token superseded")
		}
		return nil, "", apperr.FromDB(err, "auto-login record not found")
	}
	if record.TokenID != claims.ID {
		return nil, "", apperr.Gone(apperr.CodeAutoLoginSuperseded, "auto-login token superseded")
	}

	// Auto-login redemption is cancellable up to the session insert.
	if err := ctx.Err(); err != nil {
		return nil, "", apperr.Timeout("request cancelled")
	}

	sessionToken, jti, expiresAt, err := s.jwt.GenerateSession(user.Username)
	if err != nil {
		return nil, "", apperr.Wrap(err, "failed to sign session token")
	}
	session := &models.Session{
		UserID:     user.ID,
		TokenJTI:   jti,
		DeviceInfo: deviceInfo,
		IP:         ip,
		ExpiresAt:  expiresAt,
	}
	if err := s.repo.CompleteLogin(ctx, session, ""); err != nil {
		return nil, "", apperr.FromDB(err, "session not created")
	}
	if err := s.repo.TouchAutoLoginIP(ctx, user.ID, ip); err != nil {
		s.logger.Warn("auto-login ip update failed", zap.Error(err), zap.Int64("user_id", user.ID))
	}
	return user, sessionToken, nil
}
