package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/cppla/organizer/models"
	"github.com/cppla/organizer/store"
	"github.com/cppla/organizer/utils"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

// CredentialService registers and authenticates users and issues session tokens.
type CredentialService struct {
	users      store.UserStore
	tokens     *utils.TokenSigner
	revoked    *utils.RevocationList
	bcryptCost int
	log        *zap.Logger
}

// NewCredentialService wires the service. bcryptCost is the hashing cost for new passwords.
func NewCredentialService(users store.UserStore, tokens *utils.TokenSigner, revoked *utils.RevocationList, bcryptCost int, log *zap.Logger) *CredentialService {
	return &CredentialService{
		users:      users,
		tokens:     tokens,
		revoked:    revoked,
		bcryptCost: bcryptCost,
		log:        log,
	}
}

// RegisterInput is the sign-up form.
type RegisterInput struct {
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
}

// AuthResult is a user record together with a fresh session token.
type AuthResult struct {
	User  *models.User `json:"result"`
	Token string       `json:"token"`
}

// Register creates an account. The duplicate-email check runs before the password
// confirmation check.
func (s *CredentialService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if _, err := s.users.FindUserByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateAccount
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeErr("find user by email", err)
	}

	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}

	if len(in.Password) > maxPasswordBytes {
		return nil, ErrPasswordTooLong
	}

	hash, err := utils.HashPassword(in.Password, s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, ErrPasswordTooLong
	}
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Name:     in.FirstName + " " + in.LastName,
		Email:    in.Email,
		Password: hash,
		Posts:    []string{},
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		// Lost the race against a concurrent sign-up with the same email.
		if errors.Is(err, store.ErrDuplicateEmail) {
			return nil, ErrDuplicateAccount
		}
		return nil, storeErr("create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID))
	return s.issue(user)
}

// Authenticate checks the password of the account registered under email.
func (s *CredentialService) Authenticate(ctx context.Context, email, password string) (*AuthResult, error) {
	user, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		return nil, storeErr("find user by email", err)
	}
	if !utils.CheckPassword(user.Password, password) {
		return nil, ErrInvalidCredential
	}
	return s.issue(user)
}

// SignOut revokes a locally issued token until it expires.
func (s *CredentialService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return ErrInvalidCredential
	}
	if err := s.revoked.Revoke(ctx, token, claims.ExpiresAt.Time); err != nil {
		return &StoreFailure{Op: "revoke token", Err: err}
	}
	return nil
}

func (s *CredentialService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user.Email, user.ID)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
