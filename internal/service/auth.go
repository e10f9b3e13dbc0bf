package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"orderservice/internal/auth"
	"orderservice/internal/domain"
)

//go:generate mockgen -source internal/service/auth.go -destination=internal/service/auth_mock_test.go -package=service

type UserStore interface {
	CreateUser(ctx context.Context, id, email, hashedPassword string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserExists(ctx context.Context, email string) (bool, error)
}

// TokenHelper is the opaque issue/verify capability; the service never
// sees signing or hashing internals.
type TokenHelper interface {
	HashPassword(password string) (string, error)
	VerifyPassword(password, hashedPassword string) bool
	IssueToken(scope, userID, email string) (auth.Token, error)
	VerifyToken(raw, wantScope string) (domain.CurrentUser, error)
}

type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type AuthService struct {
	users  UserStore
	tokens TokenHelper
	logger *zap.Logger
}

func NewAuthService(users UserStore, tokens TokenHelper, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		logger: logger,
	}
}

func (s *AuthService) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, domain.InvalidData("email and password are required")
	}

	exists, err := s.users.UserExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.InvalidData("user already exists")
	}

	hashed, err := s.tokens.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, domain.NewID(), email, hashed)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

// Login answers the same way for an unknown email and a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetUserByEmail(ctx, email)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return TokenPair{}, domain.NotAllowed("incorrect email or password")
		}
		return TokenPair{}, err
	}
	if !s.tokens.VerifyPassword(password, user.HashedPassword) {
		return TokenPair{}, domain.NotAllowed("incorrect email or password")
	}

	access, err := s.tokens.IssueToken(auth.ScopeAccess, user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.tokens.IssueToken(auth.ScopeRefresh, user.ID, user.Email)
	if err != nil {
		return TokenPair{}, err
	}

	return TokenPair{
		AccessToken:  access.Raw,
		RefreshToken: refresh.Raw,
		TokenType:    "bearer",
	}, nil
}

// CurrentUser resolves the identity behind a raw access token.
func (s *AuthService) CurrentUser(ctx context.Context, rawToken string) (domain.CurrentUser, error) {
	return s.tokens.VerifyToken(rawToken, auth.ScopeAccess)
}
