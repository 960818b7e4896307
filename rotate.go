package accounts

import (
	"context"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Refresh rotates a refresh token. The incoming token walks a short state
// machine, every failure branch terminal and unauthorized:
//
//	missing             -> ErrRefreshTokenMissing
//	malformed / expired -> ErrTokenExpired or ErrTokenMalformed
//	unknown user        -> ErrRefreshTokenInvalid
//	slot mismatch       -> ErrRefreshTokenReused (rotated away or cleared)
//	slot match          -> new pair issued, new refresh token persisted
//
// Rotation is single-use: once a token has been rotated the stored slot no
// longer matches it, so presenting it again lands in the mismatch branch.
// Two concurrent rotations race on the slot write; the loser observes a
// mismatch on its next use, which is the intended replay defense.
func (s *SessionManager) Refresh(ctx context.Context, incoming string) (*TokenPair, error) {
	if incoming == "" {
		return nil, ErrRefreshTokenMissing
	}

	claims, err := s.tokens.ValidateRefreshToken(incoming)
	if err != nil {
		s.logger.Error("refresh token validation failed", "error", err)
		return nil, err
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return nil, ErrRefreshTokenInvalid
	}

	user, err := s.repo.Users().GetByIdentifier(ctx, id.String())
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, ErrRefreshTokenInvalid
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to load user during rotation")
	}

	if user.RefreshToken == "" || user.RefreshToken != incoming {
		s.logger.Info("stale refresh token presented", "user_id", user.ID.String())
		return nil, ErrRefreshTokenReused
	}

	return s.issueAndBind(ctx, user.Identity())
}
