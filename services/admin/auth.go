package admin

import (
	"context"
	"crypto/subtle"
	"strings"

	"astrobook/models"
	"astrobook/utils"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminSubject = "admin"

// DefaultAuthService checks the single admin account configured in the environment.
type DefaultAuthService struct {
	email        string
	passwordHash []byte
	tokens       *utils.TokenIssuer
	logger       *zap.Logger
}

func NewAuthService(email, passwordHash string, tokens *utils.TokenIssuer, logger *zap.Logger) *DefaultAuthService {
	return &DefaultAuthService{
		email:        strings.ToLower(strings.TrimSpace(email)),
		passwordHash: []byte(passwordHash),
		tokens:       tokens,
		logger:       logger,
	}
}

// Login verifies the credentials and issues a session token.
func (s *DefaultAuthService) Login(ctx context.Context, email, password string) (*models.AdminSession, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(s.email)) == 1
	// bcrypt runs even when the email is wrong.
	pwErr := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(password))
	if !emailOK || pwErr != nil {
		s.logger.Warn("admin login failed", zap.String("email", email))
		return nil, utils.NewUnauthorizedError("invalid email or password")
	}

	token, expires, err := s.tokens.GenerateToken(adminSubject, s.email)
	if err != nil {
		return nil, err
	}
	s.logger.Info("admin logged in")
	return &models.AdminSession{Token: token, ExpiresAt: expires}, nil
}

// Authenticate validates a bearer token and returns its subject.
func (s *DefaultAuthService) Authenticate(token string) (string, error) {
	sub, err := s.tokens.ValidateToken(token)
	if err != nil {
		return "", utils.NewUnauthorizedError("invalid or expired token")
	}
	return sub, nil
}
