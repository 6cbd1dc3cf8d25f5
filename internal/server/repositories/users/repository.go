package users

import (
	"context"

	"github.com/dmitrijs2005/wellness/internal/server/models"
)

// Repository stores users. Lookups return common.ErrorNotFound when no row
// matches; Create returns common.ErrDuplicateEmail when the email is taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
}
