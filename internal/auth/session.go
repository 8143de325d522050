package auth

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
	"github.com/userhub/apiserver/types"
)

// SessionIssuer runs the login flow: authenticate, check the account is
// active, then issue an access token.
type SessionIssuer struct {
	authenticator *Authenticator
	tokens        *TokenService
	logger        logrus.FieldLogger
}

func NewSessionIssuer(authenticator *Authenticator, tokens *TokenService, logger logrus.FieldLogger) *SessionIssuer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &SessionIssuer{
		authenticator: authenticator,
		tokens:        tokens,
		logger:        logger,
	}
}

// Login returns a bearer token for valid credentials of an active account.
// The submitted username is never logged; only a matched account's id is.
func (s *SessionIssuer) Login(ctx context.Context, username, password string) (types.Token, error) {
	user, err := s.authenticator.Authenticate(ctx, username, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.logger.Info("login rejected: invalid credentials")
		} else {
			s.logger.WithError(err).Error("login failed")
		}
		return types.Token{}, err
	}

	log := s.logger.WithField("user_id", user.ID)
	if !user.IsActive {
		log.Info("login rejected: account disabled")
		return types.Token{}, ErrAccountDisabled
	}

	accessToken, err := s.tokens.Issue(user.Username)
	if err != nil {
		log.WithError(err).Error("failed to sign access token")
		return types.Token{}, err
	}

	log.Debug("login succeeded")
	return types.Token{
		AccessToken: accessToken,
		TokenType:   types.TokenTypeBearer,
	}, nil
}
