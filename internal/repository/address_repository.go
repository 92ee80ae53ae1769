package repository

import (
	"context"

	"app/internal/domain/model"
)

type AddressRepository interface {
	FindByID(ctx context.Context, id int64) (model.Address, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Address, error)
	Create(ctx context.Context, a model.Address) (model.Address, error)
}
