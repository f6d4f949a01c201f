package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"boardchat/internal/core/domain"
	"boardchat/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
)

var errEmptyCredential = errors.New("empty credential")

type AuthService interface {
	ports.IdentityVerifier
	GenerateToken(userID domain.UserID, username string) (string, error)
}

type Claims struct {
	UserID   domain.UserID `json:"user_id"`
	Username string        `json:"username"`
	jwt.RegisteredClaims
}

type authService struct {
	jwtSecret      []byte
	accessTokenTTL time.Duration
	verifyTimeout  time.Duration
	userRepo       ports.UserRepository
	now            func() time.Time
}

func NewAuthService(
	jwtSecret string,
	accessTokenTTL time.Duration,
	verifyTimeout time.Duration,
	userRepo ports.UserRepository,
) AuthService {
	return &authService{
		jwtSecret:      []byte(jwtSecret),
		accessTokenTTL: accessTokenTTL,
		verifyTimeout:  verifyTimeout,
		userRepo:       userRepo,
		now:            time.Now,
	}
}

func (s *authService) GenerateToken(userID domain.UserID, username string) (string, error) {
	now := s.now()
	claims := &Claims{
		UserID:   userID,
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(userID),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// Verify resolves a bearer credential into an identity. The user lookup is
// bounded by the verify timeout.
func (s *authService) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	claims, err := s.parse(credential)
	if err != nil {
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, s.verifyTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(lookupCtx, claims.UserID)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrUserNotFound):
		return domain.Identity{}, domain.NewAuthError(domain.AuthUnknownSubject, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(lookupCtx.Err(), context.DeadlineExceeded):
		return domain.Identity{}, domain.NewAuthError(domain.AuthTimeout, err)
	default:
		return domain.Identity{}, domain.NewAuthError(domain.AuthInvalid, fmt.Errorf("user lookup: %w", err))
	}

	return domain.Identity{UserID: user.ID, Username: user.Username}, nil
}

func (s *authService) parse(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, errEmptyCredential
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.UserID == "" {
		return nil, errors.New("token carries no user id")
	}
	return claims, nil
}
