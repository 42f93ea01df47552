package users

import (
	"context"

	"github.com/sujinchoi3/my-todolist/internal/server/models"
)

// Repository persists identities. GetByEmail and GetByID return
// common.ErrorNotFound when no row matches; Create returns
// common.ErrEmailAlreadyExists when the email is already taken.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
}
