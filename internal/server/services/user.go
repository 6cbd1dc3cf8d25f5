// Package services contains server-side business logic: UserService for
// registration and API tokens, MetricsService for the metric ingest, query,
// delete and scoring pipeline. Both run every unit of work through
// dbx.WithTx and return *common.Error failures.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/wellness/internal/common"
	"github.com/dmitrijs2005/wellness/internal/dbx"
	"github.com/dmitrijs2005/wellness/internal/logging"
	"github.com/dmitrijs2005/wellness/internal/server/auth"
	"github.com/dmitrijs2005/wellness/internal/server/config"
	"github.com/dmitrijs2005/wellness/internal/server/models"
	"github.com/dmitrijs2005/wellness/internal/server/repositories/repomanager"
)

// UserService registers users, looks them up and mints API tokens.
type UserService struct {
	db                          *sql.DB
	repomanager                 repomanager.RepositoryManager
	jwtSecret                   []byte
	accessTokenValidityDuration time.Duration
	logger                      logging.Logger
	now                         func() time.Time
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *UserService {
	return &UserService{
		db:                          db,
		repomanager:                 m,
		jwtSecret:                   []byte(cfg.SecretKey),
		accessTokenValidityDuration: cfg.AccessTokenValidityDuration,
		logger:                      logger.With("module", "user_service"),
		now:                         time.Now,
	}
}

// Register creates a user. Name and email are trimmed and must be non-empty;
// the email must look like an address. A taken email yields
// common.ErrDuplicateEmail and leaves the existing row alone.
func (s *UserService) Register(ctx context.Context, name, email string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" {
		return nil, common.ErrInvalidInput.Withf("name must not be empty")
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}

	user := &models.User{Name: name, Email: email, CreatedAt: s.now().UTC().Truncate(time.Microsecond)}
	var created *models.User
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		created, err = s.repomanager.Users(tx).Create(ctx, user)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrDuplicateEmail) {
			s.logger.Info(ctx, "duplicate registration rejected", "email", email)
		} else {
			s.logger.Error(ctx, "user registration failed", "email", email, "error", err)
		}
		return nil, classify(err)
	}

	s.logger.Info(ctx, "user registered", "user_id", created.ID)
	return created, nil
}

// GetByEmail returns the user or common.ErrUserNotFound.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := resolveUser(ctx, s.repomanager.Users(s.db), email)
	if err != nil {
		return nil, classify(err)
	}
	return user, nil
}

// IssueToken mints an access token whose subject is the user's email.
func (s *UserService) IssueToken(ctx context.Context, email string) (string, error) {
	user, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if len(s.jwtSecret) == 0 {
		return "", common.ErrInvalidInput.Withf("token signing is disabled: no secret key configured")
	}
	token, err := auth.GenerateToken(user.Email, s.jwtSecret, s.accessTokenValidityDuration)
	if err != nil {
		return "", &common.Error{Kind: common.KindInternal, Reason: "internal_error", Detail: "sign token", Err: err}
	}
	return token, nil
}

func validateEmail(email string) error {
	if email == "" {
		return common.ErrInvalidInput.Withf("email must not be empty")
	}
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\r\n") {
		return common.ErrInvalidInput.Withf("invalid email %q", email)
	}
	return nil
}
