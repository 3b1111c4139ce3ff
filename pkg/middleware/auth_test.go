package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return key
}

func signToken(t *testing.T, key *rsa.PrivateKey, sellerID int64, caps []string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, Claims{
		SellerID:     sellerID,
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	s, err := tok.SignedString(key)
	require.NoError(t, err)
	return s
}

func publicPEM(t *testing.T, key *rsa.PrivateKey) string {
	t.Helper()
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func TestLoadRSAPublicKey_EscapedNewlines(t *testing.T) {
	key := newKey(t)
	single := strings.ReplaceAll(publicPEM(t, key), "\n", `\n`)

	pub, err := LoadRSAPublicKey(single)
	require.NoError(t, err)
	assert.Equal(t, key.PublicKey.N, pub.N)

	_, err = LoadRSAPublicKey("")
	assert.Error(t, err)
}

func TestRS256Validator(t *testing.T) {
	key := newKey(t)
	validate := RS256Validator(&key.PublicKey)

	claims, err := validate(signToken(t, key, 42, []string{CapEditProduct}, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.SellerID)
	assert.True(t, claims.Can(CapEditProduct))
	assert.False(t, claims.Can(CapDeleteProduct))

	_, err = validate(signToken(t, key, 42, nil, -time.Hour))
	assert.Error(t, err, "expired beyond leeway")

	other := newKey(t)
	_, err = validate(signToken(t, other, 42, nil, time.Hour))
	assert.Error(t, err, "wrong key")
}

func TestRS256Validator_RejectsHMAC(t *testing.T) {
	key := newKey(t)
	hs := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{SellerID: 1})
	s, err := hs.SignedString([]byte("secret"))
	require.NoError(t, err)

	_, err = RS256Validator(&key.PublicKey)(s)
	assert.Error(t, err)
}

func TestAuth_StoresClaims(t *testing.T) {
	key := newKey(t)
	var seen int64
	h := Auth(RS256Validator(&key.PublicKey))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = SellerIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, key, 7, nil, time.Hour))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(7), seen)
}

func TestAuth_Rejects(t *testing.T) {
	key := newKey(t)
	h := Auth(RS256Validator(&key.PublicKey))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, header)
		assert.Contains(t, rec.Body.String(), "UNAUTHORIZED")
	}
}

func TestRequireCapability(t *testing.T) {
	h := RequireCapability(CapAddProduct)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/products", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), &Claims{SellerID: 1, Capabilities: []string{CapAddProduct}})))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req.WithContext(WithClaims(req.Context(), &Claims{SellerID: 1, Capabilities: []string{CapViewProducts}})))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "FORBIDDEN")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
