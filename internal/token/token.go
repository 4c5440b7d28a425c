package token

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/viewtube/apiserver/config"
	"github.com/viewtube/apiserver/types"
)

// Pair is one access/refresh token issuance. The access token proves
// identity on subsequent requests; the refresh token only mints the
// next pair.
type Pair struct {
	AccessToken  string
	RefreshToken string
}

// AccessClaims are carried by access tokens: the subject plus the
// minimal profile fields clients render without a user fetch.
type AccessClaims struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies the access/refresh token pair. The two
// token kinds use distinct secrets so one can never stand in for the
// other.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(cfg config.JWTConfig) (*Issuer, error) {
	if strings.TrimSpace(cfg.AccessSecret) == "" || strings.TrimSpace(cfg.RefreshSecret) == "" {
		return nil, errors.New("jwt access and refresh secrets are required")
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, errors.New("jwt access and refresh secrets must differ")
	}

	accessTTL := cfg.AccessTTL
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	refreshTTL := cfg.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 7 * 24 * time.Hour
	}

	return &Issuer{
		accessSecret:  []byte(cfg.AccessSecret),
		refreshSecret: []byte(cfg.RefreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}, nil
}

// IssuePair mints a fresh access/refresh pair for the user.
func (i *Issuer) IssuePair(user types.User) (Pair, error) {
	access, err := i.issueAccess(user)
	if err != nil {
		return Pair{}, err
	}
	refresh, err := i.issueRefresh(user.ID)
	if err != nil {
		return Pair{}, err
	}
	return Pair{AccessToken: access, RefreshToken: refresh}, nil
}

func (i *Issuer) issueAccess(user types.User) (string, error) {
	now := time.Now()
	claims := AccessClaims{
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.accessSecret)
}

func (i *Issuer) issueRefresh(userID int) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   strconv.Itoa(userID),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.refreshTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.refreshSecret)
}

// VerifyAccess validates an access token and returns the user ID it
// was issued to.
func (i *Issuer) VerifyAccess(tokenString string) (int, error) {
	claims := AccessClaims{}
	if err := parseInto(tokenString, &claims, i.accessSecret); err != nil {
		return 0, err
	}
	return subjectID(claims.Subject)
}

// VerifyRefresh validates a refresh token's signature and expiry and
// returns the user ID it was issued to. It does not consult the store;
// callers must still compare against the persisted token.
func (i *Issuer) VerifyRefresh(tokenString string) (int, error) {
	claims := jwt.RegisteredClaims{}
	if err := parseInto(tokenString, &claims, i.refreshSecret); err != nil {
		return 0, err
	}
	return subjectID(claims.Subject)
}

func parseInto(tokenString string, claims jwt.Claims, secret []byte) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return errors.New("invalid token")
	}
	return nil
}

func subjectID(subject string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(subject))
	if err != nil || id < 1 {
		return 0, errors.New("invalid subject")
	}
	return id, nil
}
