// Package users implements account operations: registration with bot check
// and email verification, login with access/refresh token issuance, password
// reset, and cascading account deletion.
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/copypaster/server/internal/dbx"
	"github.com/copypaster/server/internal/logging"
	"github.com/copypaster/server/internal/server/auth"
	"github.com/copypaster/server/internal/server/config"
	"github.com/copypaster/server/internal/server/models"
	"github.com/copypaster/server/internal/server/repositories/repomanager"
	"github.com/copypaster/server/internal/shared"
)

const (
	minPasswordLength       = 6
	verificationTokenTTL    = 24 * time.Hour
	resetTokenTTL           = 1 * time.Hour
	verificationTokenLength = 32
)

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Mailer sends account lifecycle emails.
type Mailer interface {
	SendVerificationEmail(ctx context.Context, to, name, link string) error
	SendPasswordResetEmail(ctx context.Context, to, link string) error
}

// BotChecker verifies a client-supplied bot-detection token.
type BotChecker interface {
	Verify(ctx context.Context, token string) error
}

type Service struct {
	db                           *sql.DB
	repos                        repomanager.RepositoryManager
	mailer                       Mailer
	botCheck                     BotChecker
	jwtSecret                    []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
	baseURL                      string
	logger                       logging.Logger
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, mailer Mailer, botCheck BotChecker, cfg *config.Config, logger logging.Logger) *Service {
	return &Service{
		db:                           db,
		repos:                        repos,
		mailer:                       mailer,
		botCheck:                     botCheck,
		jwtSecret:                    []byte(cfg.SecretKey),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
		baseURL:                      cfg.BaseURL,
		logger:                       logger.With("module", "user_service"),
	}
}

// Register creates an unverified account and sends a verification email.
// The bot check runs before anything touches the database.
func (s *Service) Register(ctx context.Context, name, email, password, botToken string) (*models.User, error) {

	if err := s.botCheck.Verify(ctx, botToken); err != nil {
		return nil, err
	}

	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", shared.ErrorValidation)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", shared.ErrorValidation, minPasswordLength)
	}

	repo := s.repos.Users(s.db)

	if _, err := repo.GetByEmail(ctx, email); err == nil {
		return nil, shared.ErrorAlreadyExists
	} else if !errors.Is(err, shared.ErrorNotFound) {
		return nil, shared.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	token, err := shared.MakeRandHexString(verificationTokenLength)
	if err != nil {
		return nil, shared.ErrorInternal
	}
	expiry := time.Now().Add(verificationTokenTTL)

	user := &models.User{
		Name:                    name,
		Email:                   email,
		PasswordHash:            string(hash),
		VerificationToken:       token,
		VerificationTokenExpiry: &expiry,
	}

	user, err = repo.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	link := s.baseURL + "/api/auth/verify-email?token=" + token
	if err := s.mailer.SendVerificationEmail(ctx, user.Email, user.Name, link); err != nil {
		// the account exists; verification can be re-requested
		s.logger.Warn(ctx, "verification email failed", "email", user.Email, "error", err.Error())
	}

	return user, nil
}

// VerifyEmail marks the account matching a live verification token as
// verified.
func (s *Service) VerifyEmail(ctx context.Context, token string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorVerificationFailed
		}
		return shared.ErrorInternal
	}

	return repo.MarkVerified(ctx, user.ID)
}

func (s *Service) checkPassword(user *models.User, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(candidate)) == nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*TokenPair, error) {

	user, err := s.repos.Users(s.db).GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorUnauthorized
		}
		return nil, shared.ErrorInternal
	}

	if !s.checkPassword(user, password) {
		return nil, shared.ErrorUnauthorized
	}

	if !user.IsVerified {
		return nil, shared.ErrorEmailNotVerified
	}

	return s.issueTokenPair(ctx, user.ID)
}

// Refresh rotates a refresh token: the presented token is deleted and a new
// pair is issued.
func (s *Service) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	repo := s.repos.RefreshTokens(s.db)

	refreshToken, err := repo.Find(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil, shared.ErrorUnauthorized
		}
		return nil, shared.ErrorInternal
	}

	if err := repo.Delete(ctx, token); err != nil {
		return nil, shared.ErrorInternal
	}

	if time.Now().After(refreshToken.Expires) {
		return nil, shared.ErrorUnauthorized
	}

	return s.issueTokenPair(ctx, refreshToken.UserID)
}

func (s *Service) issueTokenPair(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := auth.GenerateToken(userID, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	refreshToken, err := shared.MakeRandHexString(32)
	if err != nil {
		return nil, shared.ErrorInternal
	}

	if err := s.repos.RefreshTokens(s.db).Create(ctx, userID, refreshToken, s.refreshTokenValidityDuration); err != nil {
		return nil, shared.ErrorInternal
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// ForgotPassword stores a short-lived reset token and mails a reset link.
// An unknown email reports success so the endpoint does not reveal which
// addresses have accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	repo := s.repos.Users(s.db)

	user, err := repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return nil
		}
		return shared.ErrorInternal
	}

	token, err := shared.MakeRandHexString(verificationTokenLength)
	if err != nil {
		return shared.ErrorInternal
	}

	if err := repo.SetResetToken(ctx, user.ID, token, time.Now().Add(resetTokenTTL)); err != nil {
		return shared.ErrorInternal
	}

	link := s.baseURL + "/auth/reset-password?token=" + token
	if err := s.mailer.SendPasswordResetEmail(ctx, user.Email, link); err != nil {
		s.logger.Warn(ctx, "password reset email failed", "email", user.Email, "error", err.Error())
	}

	return nil
}

// ResetPassword sets a new password for the account matching a live reset
// token and invalidates every session refresh token.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", shared.ErrorValidation, minPasswordLength)
	}

	repo := s.repos.Users(s.db)

	user, err := repo.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorVerificationFailed
		}
		return shared.ErrorInternal
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return shared.ErrorInternal
	}

	if err := repo.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return shared.ErrorInternal
	}

	return s.repos.RefreshTokens(s.db).DeleteAllForUser(ctx, user.ID)
}

// DeleteAccount verifies the caller's current password and, on match,
// removes all owned data in one transaction. Dependent rows go first so a
// failure can never leave todos without an owner.
func (s *Service) DeleteAccount(ctx context.Context, userID, password string) error {

	user, err := s.repos.Users(s.db).GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrorNotFound) {
			return shared.ErrorNotFound
		}
		return shared.ErrorInternal
	}

	if !s.checkPassword(user, password) {
		return shared.ErrorIncorrectPassword
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repos.Todos(tx).DeleteAllOwned(ctx, userID); err != nil {
			return err
		}
		if err := s.repos.RefreshTokens(tx).DeleteAllForUser(ctx, userID); err != nil {
			return err
		}
		return s.repos.Users(tx).Delete(ctx, userID)
	})
	if err != nil {
		s.logger.Error(ctx, "account deletion failed", "user_id", userID, "error", err.Error())
		return shared.ErrorInternal
	}

	return nil
}
