// Package jwt emite y verifica access tokens HS256 para el flujo Bearer
// (clientes API y el intercambio PKCE).
package jwt

import (
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer firma y verifica access tokens.
type Issuer struct {
	issuer    string
	secret    []byte
	accessTTL time.Duration
}

func NewIssuer(issuer, secret string, accessTTL time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, fmt.Errorf("jwt: empty signing secret")
	}
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	return &Issuer{issuer: issuer, secret: []byte(secret), accessTTL: accessTTL}, nil
}

// IssueAccessToken emite un token para subject, opcionalmente atado a un client.
func (i *Issuer) IssueAccessToken(subject, clientID string) (string, error) {
	now := time.Now().UTC()
	claims := jwtlib.MapClaims{
		"iss": i.issuer,
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(i.accessTTL).Unix(),
		"jti": uuid.NewString(),
	}
	if clientID != "" {
		claims["cid"] = clientID
	}
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return tok.SignedString(i.secret)
}

// Verify valida firma, issuer y expiración. Devuelve el subject.
func (i *Issuer) Verify(tokenStr string) (string, error) {
	tok, err := jwtlib.Parse(tokenStr, func(t *jwtlib.Token) (any, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("jwt: unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	}, jwtlib.WithIssuer(i.issuer), jwtlib.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	claims, ok := tok.Claims.(jwtlib.MapClaims)
	if !ok || !tok.Valid {
		return "", fmt.Errorf("jwt: invalid token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", fmt.Errorf("jwt: missing subject")
	}
	return sub, nil
}
