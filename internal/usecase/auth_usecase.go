package usecase

import (
	"context"
	"strings"
	"time"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"golang.org/x/crypto/bcrypt"
)

// JWTの発行はmainで実装を注入する。
type TokenIssuer interface {
	Issue(userID int64, role model.Role, now time.Time) (token string, expiresAt time.Time, err error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
}

type PasswordVerifier interface {
	Verify(hash string, plain string) error
}

type AuthUsecase struct {
	userRepo repo.UserRepository
	hasher   PasswordHasher
	verifier PasswordVerifier
	issuer   TokenIssuer
}

func NewAuthUsecase(
	userRepo repo.UserRepository,
	hasher PasswordHasher,
	verifier PasswordVerifier,
	issuer TokenIssuer,
) *AuthUsecase {
	return &AuthUsecase{
		userRepo: userRepo,
		hasher:   hasher,
		verifier: verifier,
		issuer:   issuer,
	}
}

type RegisterInput struct {
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

type UserOutput struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	IsActive bool   `json:"is_active"`
}

type LoginOutput struct {
	User        UserOutput `json:"user"`
	AccessToken string     `json:"access_token"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

func (u *AuthUsecase) Register(ctx context.Context, in RegisterInput) (UserOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || !strings.Contains(email, "@") || len(email) > 255 {
		return UserOutput{}, newValidationError("invalid email")
	}
	if len(in.Password) < 8 || len(in.Password) > 72 {
		return UserOutput{}, newValidationError("password must be 8-72 chars")
	}

	//重複チェック（最終的にはuniqueインデックスが守る）
	if _, err := u.userRepo.FindByEmail(ctx, email); err == nil {
		return UserOutput{}, &AppError{Status: 409, Code: CodeConflict, Message: "email already registered"}
	} else if err != repo.ErrNotFound {
		return UserOutput{}, newInternalError()
	}

	hash, err := u.hasher.Hash(in.Password)
	if err != nil {
		return UserOutput{}, newInternalError()
	}

	now := time.Now()
	created, err := u.userRepo.Create(ctx, model.User{
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return UserOutput{}, &AppError{Status: 409, Code: CodeConflict, Message: "email already registered"}
	}

	return toUserOutput(created), nil
}

func (u *AuthUsecase) Login(ctx context.Context, in LoginInput) (LoginOutput, error) {
	email := strings.TrimSpace(strings.ToLower(in.Email))
	if email == "" || in.Password == "" {
		return LoginOutput{}, newValidationError("email and password required")
	}

	user, err := u.userRepo.FindByEmail(ctx, email)
	if err == repo.ErrNotFound {
		//存在有無は漏らさない
		return LoginOutput{}, newUnauthorizedError()
	}
	if err != nil {
		return LoginOutput{}, newInternalError()
	}
	if !user.IsActive {
		return LoginOutput{}, newForbiddenError("account disabled")
	}

	if err := u.verifier.Verify(user.PasswordHash, in.Password); err != nil {
		return LoginOutput{}, newUnauthorizedError()
	}

	now := time.Now()
	token, expiresAt, err := u.issuer.Issue(user.ID, user.Role, now)
	if err != nil {
		return LoginOutput{}, newInternalError()
	}

	//ログイン時刻はベストエフォート
	_ = u.userRepo.UpdateLastLoginAt(ctx, user.ID)

	return LoginOutput{
		User:        toUserOutput(user),
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}

func toUserOutput(u model.User) UserOutput {
	return UserOutput{
		ID:       u.ID,
		Email:    u.Email,
		Role:     string(u.Role),
		IsActive: u.IsActive,
	}
}

// bcrypt（会員登録：Hash / ログイン：Verify）

type BcryptPasswordHasher struct {
	cost int
}

func NewBcryptPasswordHasher(cost int) *BcryptPasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordHasher{cost: cost}
}

func (h *BcryptPasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

type BcryptPasswordVerifier struct{}

func NewBcryptPasswordVerifier() *BcryptPasswordVerifier {
	return &BcryptPasswordVerifier{}
}

func (v *BcryptPasswordVerifier) Verify(hash string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
