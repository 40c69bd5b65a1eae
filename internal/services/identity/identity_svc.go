package identity

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// bcrypt cost 12 keeps hashing time reasonable for login-path latency.
const bcryptCost = 12

var (
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrMissingCredentials = errors.New("username and password are required")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid token")
)

type AuthDTO struct {
	Username string `json:"username"`
	Token    string `json:"token"`
}

type IIdentityService interface {
	Register(ctx context.Context, username, password string) error
	Login(ctx context.Context, username, password string) (*AuthDTO, error)
	// VerifyToken returns the authenticated username for a bearer token.
	VerifyToken(token string) (string, error)
	// ListUsernames returns every registered username except exclude,
	// sorted. The caller passes its own name to get its contacts list.
	ListUsernames(ctx context.Context, exclude string) ([]string, error)
}

type identityService struct {
	db       *sql.DB
	secret   []byte
	tokenTTL time.Duration
	issuer   string
}

func NewIdentityService(db *sql.DB, secret string, tokenTTL time.Duration, issuer string) IIdentityService {
	return &identityService{
		db:       db,
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		issuer:   issuer,
	}
}

// Register creates the user. Uniqueness is enforced by the insert itself
// (ON CONFLICT DO NOTHING + rows-affected check), not by a lookup first, so
// two concurrent registrations of the same name cannot both succeed.
func (svc *identityService) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return ErrMissingCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}

	const q = `INSERT INTO users (username, password_hash)
	                VALUES ($1, $2)
	           ON CONFLICT (username) DO NOTHING`
	res, err := svc.db.ExecContext(ctx, q, username, string(hash))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUsernameTaken
	}
	return nil
}

// Login verifies the password and issues a signed bearer token. Unknown user
// and wrong password are indistinguishable to the caller.
func (svc *identityService) Login(ctx context.Context, username, password string) (*AuthDTO, error) {
	username = strings.TrimSpace(username)

	const q = `SELECT password_hash FROM users WHERE username = $1`
	var hash string
	if err := svc.db.QueryRowContext(ctx, q, username).Scan(&hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := svc.signToken(username)
	if err != nil {
		return nil, err
	}
	return &AuthDTO{Username: username, Token: token}, nil
}

func (svc *identityService) ListUsernames(ctx context.Context, exclude string) ([]string, error) {
	const q = `SELECT username FROM users WHERE username <> $1 ORDER BY username`
	rows, err := svc.db.QueryContext(ctx, q, exclude)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usernames := make([]string, 0)
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		usernames = append(usernames, u)
	}
	return usernames, rows.Err()
}

func (svc *identityService) signToken(username string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    svc.issuer,
		Subject:   username,
		ExpiresAt: jwt.NewNumericDate(now.Add(svc.tokenTTL)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
}

func (svc *identityService) VerifyToken(token string) (string, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("%w: unexpected signing method", ErrInvalidToken)
		}
		return svc.secret, nil
	})
	if err != nil {
		return "", ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
