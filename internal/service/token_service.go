package service

import (
	"errors"
	"fmt"
	"time"

	"vtu-backend/internal/core/domain"
	"vtu-backend/internal/core/ports"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// tokenClaims is the token payload: registered claims plus the role the user
// held when the token was issued and whether it is an access or refresh token.
type tokenClaims struct {
	Role string `json:"role"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// JWTTokenService implements ports.TokenService with HS256 tokens. Access and
// refresh tokens share a key but are told apart by their typ claim.
type JWTTokenService struct {
	secret        []byte
	expiry        time.Duration
	refreshExpiry time.Duration
	issuer        string
	parser        *jwt.Parser
}

func NewJWTTokenService(secret string, expiry, refreshExpiry time.Duration, issuer string) *JWTTokenService {
	return &JWTTokenService{
		secret:        []byte(secret),
		expiry:        expiry,
		refreshExpiry: refreshExpiry,
		issuer:        issuer,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(issuer),
			jwt.WithExpirationRequired(),
		),
	}
}

// Generate issues an access token for the user.
func (s *JWTTokenService) Generate(userID uuid.UUID, role domain.UserRole) (string, time.Time, error) {
	return s.sign(userID, role, tokenTypeAccess, s.expiry)
}

// GenerateRefresh issues a longer-lived token accepted only by ValidateRefresh.
func (s *JWTTokenService) GenerateRefresh(userID uuid.UUID, role domain.UserRole) (string, time.Time, error) {
	return s.sign(userID, role, tokenTypeRefresh, s.refreshExpiry)
}

// Validate checks signature, issuer and expiry, then decodes subject and role.
// The role is advisory; JWTAuth reloads the user on every request.
func (s *JWTTokenService) Validate(tokenString string) (*ports.TokenClaims, error) {
	return s.parse(tokenString, tokenTypeAccess)
}

// ValidateRefresh is Validate for refresh tokens.
func (s *JWTTokenService) ValidateRefresh(tokenString string) (*ports.TokenClaims, error) {
	return s.parse(tokenString, tokenTypeRefresh)
}

func (s *JWTTokenService) sign(userID uuid.UUID, role domain.UserRole, typ string, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Role: string(role),
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing %s token: %w", typ, err)
	}
	return signed, expiresAt, nil
}

func (s *JWTTokenService) parse(tokenString, typ string) (*ports.TokenClaims, error) {
	var claims tokenClaims
	if _, err := s.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	if claims.Type != typ {
		return nil, fmt.Errorf("expected %s token, got %q", typ, claims.Type)
	}
	if claims.Subject == "" {
		return nil, errors.New("missing subject claim")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("invalid user ID in token: %w", err)
	}
	role, err := domain.ParseUserRole(claims.Role)
	if err != nil {
		return nil, fmt.Errorf("invalid role in token: %w", err)
	}

	return &ports.TokenClaims{UserID: userID, Role: role}, nil
}
