package user

import (
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

const tokenAudience = "password-reset"

var (
	salt    = []byte("tdm.core.user.token")
	nowFunc = time.Now // mockable

	// errors
	errInvalidToken = errors.New("El enlace para restablecer la contraseña no es válido")
	errTokenExpired = errors.New("El enlace para restablecer la contraseña ha expirado")
)

type resetClaims struct {
	jwt.RegisteredClaims
	// Fingerprint ties the token to the current password hash so it stops working once used.
	Fingerprint string `json:"fp"`
}

func signingKey(secret string) []byte {
	key := sha256.Sum256(append(append([]byte{}, salt...), secret...))
	return key[:]
}

func fingerprint(cred Credential) string {
	sum := sha256.Sum256(cred.Hash)
	return base64.RawURLEncoding.EncodeToString(sum[:12])
}

// makeToken generates a password reset token for the owner of cred.
func makeToken(cred Credential, secret string, ttl time.Duration) (string, error) {
	now := nowFunc()
	claims := resetClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(cred.UserID),
			Audience:  jwt.ClaimStrings{tokenAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Fingerprint: fingerprint(cred),
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey(secret))
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

// tokenUserID extracts the user id from a well signed, unexpired token.
func tokenUserID(token, secret string) (int, string, error) {
	if token == "" {
		return 0, "", errInvalidToken
	}
	claims := new(resetClaims)
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return signingKey(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(tokenAudience),
		jwt.WithTimeFunc(nowFunc),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, "", errTokenExpired
		}
		return 0, "", errInvalidToken
	}
	id, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, "", errInvalidToken
	}
	return id, claims.Fingerprint, nil
}

// verifyToken checks that token was issued for cred and is still valid.
func verifyToken(cred Credential, token, secret string) error {
	id, fp, err := tokenUserID(token, secret)
	if err != nil {
		return err
	}
	if id != cred.UserID || fp != fingerprint(cred) {
		return errInvalidToken
	}
	return nil
}
