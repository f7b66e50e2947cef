package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo describes what can be read from a bearer token without verifying it
type TokenInfo struct {
	Opaque    bool
	Subject   string
	IssuedAt  *time.Time
	ExpiresAt *time.Time
}

// Expired reports whether the token carries an expiry that has passed
func (i TokenInfo) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

// InspectToken decodes JWT claims without checking the signature. The server
// is the only party that can validate a token; this is for display only.
// Tokens that are not JWTs are reported as opaque.
func InspectToken(token string) TokenInfo {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{Opaque: true}
	}

	info := TokenInfo{}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}
	if info.Subject == "" {
		// the backend puts the account id in a custom claim
		for _, key := range []string{"userId", "adminId", "user_id", "id"} {
			if v, ok := claims[key]; ok && v != nil {
				info.Subject = stringify(v)
				break
			}
		}
	}
	if iat, err := claims.GetIssuedAt(); err == nil && iat != nil {
		t := iat.Time
		info.IssuedAt = &t
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		info.ExpiresAt = &t
	}
	return info
}

func stringify(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}
