// Package auth resolves the authenticated patient for a request. Tokens are
// issued elsewhere; this package only verifies them.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

type contextKey string

const patientIDKey contextKey = "patient_id"

// Claims is the token payload the identity provider signs.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify returns the patient id carried by a raw token.
func (v *Verifier) Verify(raw string) (uuid.UUID, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: user_id is not a UUID", ErrInvalidToken)
	}
	return id, nil
}

// Middleware rejects requests without a valid bearer token and stores the
// patient id in the request context.
func (v *Verifier) Middleware(onError func(w http.ResponseWriter, err error)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				onError(w, ErrMissingToken)
				return
			}

			patientID, err := v.Verify(raw)
			if err != nil {
				onError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPatientID(r.Context(), patientID)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", false
	}
	return strings.TrimSpace(token), true
}

func WithPatientID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, patientIDKey, id)
}

// PatientID retrieves the authenticated patient from context.
func PatientID(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(patientIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// OperatorKeyMatches compares a presented operator key in constant time.
// An empty configured key disables operator access.
func OperatorKeyMatches(configured, presented string) bool {
	if configured == "" || presented == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(configured), []byte(presented)) == 1
}
