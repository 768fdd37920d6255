package token

import (
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"school-admin/internal/model"
	"school-admin/pkg/apierror"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// signedClaims is the wire shape of both token types. Parsing into this
// struct (instead of poking at a MapClaims) is what keeps unverified or
// misshapen payloads from crossing the verification boundary.
type signedClaims struct {
	Username    string            `json:"username"`
	Role        model.Role        `json:"role"`
	TeacherRole model.TeacherRole `json:"teacher_role,omitempty"`
	Type        string            `json:"typ"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens. Access and refresh tokens use
// independent secrets so a leaked access secret cannot mint refresh
// tokens.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewCodec(accessSecret string, refreshSecret string, accessTTL time.Duration, refreshTTL time.Duration) *Codec {
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

func (c *Codec) SignAccess(user model.User) (string, error) {
	return c.sign(user, TypeAccess, c.accessSecret, c.accessTTL)
}

func (c *Codec) SignRefresh(user model.User) (string, error) {
	return c.sign(user, TypeRefresh, c.refreshSecret, c.refreshTTL)
}

func (c *Codec) VerifyAccess(tokenString string) (*model.AuthClaims, error) {
	return c.verify(tokenString, TypeAccess, c.accessSecret)
}

func (c *Codec) VerifyRefresh(tokenString string) (*model.AuthClaims, error) {
	return c.verify(tokenString, TypeRefresh, c.refreshSecret)
}

func (c *Codec) sign(user model.User, typ string, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now().UTC()
	claims := signedClaims{
		Username:    user.Username,
		Role:        user.Role,
		TeacherRole: user.TeacherRole,
		Type:        typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func (c *Codec) verify(tokenString string, expectedType string, secret []byte) (*model.AuthClaims, error) {
	var claims signedClaims
	parsed, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apierror.New("UNAUTHORIZED", "invalid token signing method", "", http.StatusUnauthorized)
		}
		return secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, apierror.New("UNAUTHORIZED", "invalid token", "", http.StatusUnauthorized)
	}

	if claims.Type != expectedType {
		return nil, apierror.New("UNAUTHORIZED", "invalid token type", "", http.StatusUnauthorized)
	}
	if claims.Subject == "" {
		return nil, apierror.New("UNAUTHORIZED", "invalid token subject", "", http.StatusUnauthorized)
	}
	if !model.ValidRole(claims.Role) {
		return nil, apierror.New("UNAUTHORIZED", "invalid token role", "", http.StatusUnauthorized)
	}
	if claims.TeacherRole != "" && !model.ValidTeacherRole(claims.TeacherRole) {
		return nil, apierror.New("UNAUTHORIZED", "invalid token teacher role", "", http.StatusUnauthorized)
	}

	return &model.AuthClaims{
		UserID:      claims.Subject,
		Username:    claims.Username,
		Role:        claims.Role,
		TeacherRole: claims.TeacherRole,
		Type:        claims.Type,
		TokenID:     claims.ID,
	}, nil
}
