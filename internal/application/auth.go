package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atvirokodosprendimai/accessdesk/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// TokenClaims is the bearer token payload. The user id travels in the "id"
// claim for every consumer.
type TokenClaims struct {
	UserID uint        `json:"id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

func (s *Service) Register(ctx context.Context, username, password, role string) (domain.User, error) {
	username = strings.TrimSpace(username)
	missing := make([]string, 0, 2)
	if username == "" {
		missing = append(missing, "username")
	}
	if password == "" {
		missing = append(missing, "password")
	}
	if len(missing) > 0 {
		return domain.User{}, domain.MissingFields(missing...)
	}

	parsedRole, err := domain.ParseRole(role)
	if err != nil {
		return domain.User{}, err
	}

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return domain.User{}, domain.ErrDuplicateUser
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := hashPassword(password)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.CreateUser(ctx, domain.User{Username: username, PasswordHash: hash, Role: parsedRole})
	if err != nil {
		return domain.User{}, err
	}

	s.WriteAudit(ctx, &u.ID, "auth.signup", "user", &u.ID, fmt.Sprintf("role=%s", u.Role))
	return u, nil
}

func (s *Service) Authenticate(ctx context.Context, username, password string) (string, domain.Role, error) {
	u, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", "", domain.ErrInvalidCredentials
		}
		return "", "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", "", domain.ErrInvalidCredentials
	}

	token, err := s.issueToken(u)
	if err != nil {
		return "", "", err
	}

	s.WriteAudit(ctx, &u.ID, "auth.login", "user", &u.ID, "token issued")
	return token, u.Role, nil
}

// VerifyToken checks signature, algorithm and expiry without touching the
// credential store.
func (s *Service) VerifyToken(token string) (TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return TokenClaims{}, domain.ErrMissingToken
	}

	var claims TokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid || claims.UserID == 0 {
		return TokenClaims{}, domain.ErrInvalidToken
	}
	return claims, nil
}

// ResolveCaller turns a bearer token into the full caller identity.
func (s *Service) ResolveCaller(ctx context.Context, token string) (domain.User, error) {
	claims, err := s.VerifyToken(token)
	if err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.User{}, domain.ErrUnknownCaller
		}
		return domain.User{}, err
	}
	return u, nil
}

func (s *Service) Me(ctx context.Context, id uint) (domain.User, error) {
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) issueToken(u domain.User) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret is not configured")
	}
	now := s.now()
	claims := TokenClaims{
		UserID: u.ID,
		Role:   u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
