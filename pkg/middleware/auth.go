package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperrors "github.com/utafrali/marketplace/pkg/errors"
	"github.com/utafrali/marketplace/pkg/httputil"
	"github.com/utafrali/marketplace/pkg/logger"
)

type contextKeyType string

const claimsKey contextKeyType = "claims"

// Capabilities a seller token may carry.
const (
	CapViewProducts  = "view_products"
	CapAddProduct    = "add_product"
	CapViewProduct   = "view_product"
	CapEditProduct   = "edit_product"
	CapDeleteProduct = "delete_product"
)

// Claims are the seller token claims.
type Claims struct {
	SellerID     int64    `json:"seller_id"`
	Capabilities []string `json:"caps"`
	jwt.RegisteredClaims
}

// Can reports whether the token grants capability.
func (c *Claims) Can(capability string) bool {
	return slices.Contains(c.Capabilities, capability)
}

// TokenValidator validates a bearer token and returns its claims.
type TokenValidator func(token string) (*Claims, error)

// LoadRSAPublicKey parses a PEM public key. Single-line PEMs with literal \n
// escapes, as commonly stored in env vars, are accepted.
func LoadRSAPublicKey(pem string) (*rsa.PublicKey, error) {
	raw := strings.TrimSpace(pem)
	if raw == "" {
		return nil, errors.New("public key is empty")
	}
	raw = strings.ReplaceAll(raw, `\n`, "\n")

	pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(raw))
	if err != nil {
		return nil, fmt.Errorf("parse public key pem: %w", err)
	}
	return pub, nil
}

// RS256Validator returns a TokenValidator that only accepts RS256 tokens signed
// by pub and carrying a seller id.
func RS256Validator(pub *rsa.PublicKey) TokenValidator {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Name}),
		jwt.WithLeeway(30*time.Second),
	)

	return func(token string) (*Claims, error) {
		if pub == nil {
			return nil, errors.New("public key is nil")
		}
		tok, err := parser.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
			return pub, nil
		})
		if err != nil {
			return nil, err
		}
		claims, ok := tok.Claims.(*Claims)
		if !ok || !tok.Valid {
			return nil, errors.New("invalid token")
		}
		return claims, nil
	}
}

// Auth validates the bearer token and stores its claims in the request context.
// A token without a seller id is accepted here; handlers decide whether a
// seller is required.
func Auth(validate TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				httputil.WriteError(w, r, apperrors.Unauthorized("missing authorization header"), nil)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid authorization header format"), nil)
				return
			}

			claims, err := validate(parts[1])
			if err != nil {
				logger.FromContext(r.Context()).WarnContext(r.Context(), "rejected token", "error", err)
				httputil.WriteError(w, r, apperrors.Unauthorized("invalid or expired token"), nil)
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			if claims.SellerID != 0 {
				ctx = logger.WithSellerID(ctx, claims.SellerID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireCapability rejects requests whose claims do not grant capability.
func RequireCapability(capability string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil || !claims.Can(capability) {
				httputil.WriteError(w, r, apperrors.Forbidden(apperrors.CodeForbidden,
					"Sorry, you are not allowed to do that."), nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ClaimsFromContext returns the claims stored by Auth, or nil.
func ClaimsFromContext(ctx context.Context) *Claims {
	if c, ok := ctx.Value(claimsKey).(*Claims); ok {
		return c
	}
	return nil
}

// WithClaims stores claims on ctx. Used by tests and internal callers.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	ctx = context.WithValue(ctx, claimsKey, c)
	if c != nil && c.SellerID != 0 {
		ctx = logger.WithSellerID(ctx, c.SellerID)
	}
	return ctx
}

// SellerIDFromContext returns the authenticated seller, or 0.
func SellerIDFromContext(ctx context.Context) int64 {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.SellerID
	}
	return 0
}
