package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/credential-vault/internal"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// Claims carried by a session token: the user id and the role id at sign time.
type Claims struct {
	UserID string `json:"id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenGenerator signs and verifies session tokens.
type TokenGenerator interface {
	GenerateAccessToken(userID, roleID string) (string, time.Time, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// PasswordHasher is the salted hash collaborator.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Compare(plaintext, digest string) bool
}

type JWTTokenGenerator struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
}

var ErrCompanyNameTaken = errors.New("company name already taken")

// NewJWTTokenGenerator creates a new JWT token generator
func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &JWTTokenGenerator{
		Secret: []byte(secret),
		TTL:    ttl,
		Issuer: "credential-vault",
	}
}

func (j *JWTTokenGenerator) GenerateAccessToken(userID, roleID string) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(j.TTL)

	claims := &Claims{
		UserID: userID,
		Role:   roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   userID,
			Issuer:    j.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.Secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateToken maps every failure onto internal.ErrInvalidToken or internal.ErrTokenExpired.
func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.UserID == "" {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

type BcryptHasher struct {
	Cost int
}

func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

func (b *BcryptHasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), b.Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (b *BcryptHasher) Compare(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}

// GenerateRandomToken returns 32 random bytes hex encoded (64 characters).
func GenerateRandomToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
