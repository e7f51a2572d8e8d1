package tokens

import (
	"errors"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrNoSecret indica que el issuer no tiene secreto configurado.
var ErrNoSecret = errors.New("tokens: empty signing secret")

// Issuer firma los access tokens de sesión que recibe la aplicación
// que integra el login social. HS256 con secreto compartido.
type Issuer struct {
	Secret []byte
	Iss    string
	TTL    time.Duration
}

// NewIssuer crea un issuer. TTL <= 0 usa 24h.
func NewIssuer(secret []byte, iss string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Issuer{Secret: secret, Iss: iss, TTL: ttl}
}

// Sign emite un JWT para el usuario autenticado.
func (i *Issuer) Sign(userID, email, provider string) (string, error) {
	if len(i.Secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now().UTC()
	claims := jwtv5.MapClaims{
		"iss":      i.Iss,
		"sub":      userID,
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"exp":      now.Add(i.TTL).Unix(),
		"provider": provider,
	}
	if email != "" {
		claims["email"] = email
	}
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims)
	return tk.SignedString(i.Secret)
}

// Parse valida un token emitido por Sign y retorna sus claims.
func (i *Issuer) Parse(tokenString string) (jwtv5.MapClaims, error) {
	tk, err := jwtv5.Parse(tokenString, func(*jwtv5.Token) (any, error) {
		return i.Secret, nil
	}, jwtv5.WithValidMethods([]string{"HS256"}), jwtv5.WithIssuer(i.Iss))
	if err != nil {
		return nil, err
	}
	claims, ok := tk.Claims.(jwtv5.MapClaims)
	if !ok || !tk.Valid {
		return nil, jwtv5.ErrTokenMalformed
	}
	return claims, nil
}
