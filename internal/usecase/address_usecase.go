package usecase

import (
	"context"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"
)

type AddressUsecase struct {
	addressRepo repo.AddressRepository
}

func NewAddressUsecase(addressRepo repo.AddressRepository) *AddressUsecase {
	return &AddressUsecase{addressRepo: addressRepo}
}

type CreateAddressInput struct {
	PostalCode string
	Prefecture string
	City       string
	Line1      string
	Line2      string
	Name       string
	Phone      string
	IsDefault  bool
}

func (u *AddressUsecase) ListMyAddresses(ctx context.Context, userID int64) ([]model.Address, error) {
	if userID <= 0 {
		return []model.Address{}, newUnauthorizedError()
	}

	items, err := u.addressRepo.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Address{}, newInternalError()
	}
	return items, nil
}

func (u *AddressUsecase) CreateAddress(ctx context.Context, userID int64, in CreateAddressInput) (model.Address, error) {
	if userID <= 0 {
		return model.Address{}, newUnauthorizedError()
	}
	if strings.TrimSpace(in.PostalCode) == "" {
		return model.Address{}, newValidationError("postal_code required")
	}
	if strings.TrimSpace(in.Prefecture) == "" {
		return model.Address{}, newValidationError("prefecture required")
	}
	if strings.TrimSpace(in.City) == "" {
		return model.Address{}, newValidationError("city required")
	}
	if strings.TrimSpace(in.Line1) == "" {
		return model.Address{}, newValidationError("line1 required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return model.Address{}, newValidationError("name required")
	}

	now := time.Now()
	created, err := u.addressRepo.Create(ctx, model.Address{
		UserID:     userID,
		PostalCode: strings.TrimSpace(in.PostalCode),
		Prefecture: strings.TrimSpace(in.Prefecture),
		City:       strings.TrimSpace(in.City),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		IsDefault:  in.IsDefault,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		return model.Address{}, newInternalError()
	}
	return created, nil
}
