package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/kriyptor/Market-Place-App/internal/apperr"
	"github.com/kriyptor/Market-Place-App/internal/auth"
	"github.com/kriyptor/Market-Place-App/internal/config"
	"github.com/kriyptor/Market-Place-App/internal/domain"
	"github.com/kriyptor/Market-Place-App/internal/logger"
	"github.com/kriyptor/Market-Place-App/internal/repository"
)

const (
	MsgSignedUp = "Successfully created new user"
	MsgSignedIn = "Login successful"
)

type SignUpInput struct {
	UserName   string             `json:"userName" validate:"required"`
	Email      string             `json:"email" validate:"required,email"`
	Password   string             `json:"password" validate:"required,min=6"`
	Role       domain.Role        `json:"role" validate:"omitempty,oneof=buyer vendor"`
	Phone      string             `json:"phone"`
	Address    *domain.Address    `json:"address"`
	VendorInfo *domain.VendorInfo `json:"vendorInfo"`
}

type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type SignInResult struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type AccountService struct {
	users repository.UserRepository
	carts repository.CartRepository
	jwt   config.JWTConfig
	log   *logger.Logger
	now   func() time.Time
}

func NewAccountService(
	users repository.UserRepository,
	carts repository.CartRepository,
	jwt config.JWTConfig,
	log *logger.Logger,
) *AccountService {
	if log == nil {
		log = logger.Nop()
	}
	return &AccountService{
		users: users,
		carts: carts,
		jwt:   jwt,
		log:   log,
		now:   time.Now,
	}
}

// SignUp registers a user. Buyers get their empty cart right away.
func (s *AccountService) SignUp(ctx context.Context, in SignUpInput) (*domain.User, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in, msgRequiredFields); err != nil {
		return nil, err
	}
	if in.Role == "" {
		in.Role = domain.RoleBuyer
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err, "Internal server error")
	}

	user := &domain.User{
		UserName:     in.UserName,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Phone:        in.Phone,
		VendorInfo:   in.VendorInfo,
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	user.Normalize()

	if err := s.users.Create(ctx, user); err != nil {
		return nil, storeError(ctx, s.log, "create user", err)
	}

	if user.Role == domain.RoleBuyer {
		if _, err := s.carts.FindOrCreate(ctx, user.ID); err != nil {
			// The cart is created lazily on first add as well.
			ctx = s.log.WithField(ctx, "user_id", user.ID.Hex())
			s.log.Warn(ctx, "cart not created at sign-up", err)
		}
	}
	return user, nil
}

func (s *AccountService) SignIn(ctx context.Context, in SignInInput) (*SignInResult, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateStruct(in, msgRequiredFields); err != nil {
		return nil, err
	}

	user, err := s.users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, storeError(ctx, s.log, "load user", err)
	}

	ok, err := auth.VerifyPassword(in.Password, user.PasswordHash)
	if err != nil {
		return nil, storeError(ctx, s.log, "verify password", err)
	}
	if !ok {
		return nil, apperr.New(apperr.CodeUnauthorized, "Invalid credentials!")
	}

	token, err := auth.MintAccessToken(s.jwt, s.now(), domain.Identity{UserID: user.ID, Role: user.Role})
	if err != nil {
		return nil, storeError(ctx, s.log, "mint token", err)
	}
	return &SignInResult{Token: token, User: user}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Identity confirms the token holder still exists and carries the role the
// token claims.
func (s *AccountService) Identity(ctx context.Context, token string) (domain.Identity, error) {
	identity, err := auth.ParseAccessToken(s.jwt, token)
	if err != nil {
		return domain.Identity{}, apperr.Wrap(apperr.CodeUnauthorized, err, "Invalid token")
	}
	user, err := s.users.GetByID(ctx, identity.UserID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return domain.Identity{}, apperr.New(apperr.CodeUnauthorized, "User does not exist!")
	}
	if err != nil {
		return domain.Identity{}, storeError(ctx, s.log, "load user", err)
	}
	return domain.Identity{UserID: user.ID, Role: user.Role}, nil
}
