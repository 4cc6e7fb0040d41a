package security

import (
	"strings"
	"testing"
	"time"

	"github.com/fady17/garagehub-go/internal/domain/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func TestAnonymousTokenRoundTrip(t *testing.T) {
	anonID := GenerateAnonymousID()
	token, err := GenerateAnonymousSessionToken(anonID, "garagehub", "garagehub-storefront", testSecret, time.Hour)
	require.NoError(t, err)

	mapClaims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)

	claims := AnonymousClaimsFromMap(mapClaims)
	require.NotNil(t, claims)
	assert.Equal(t, anonID, claims.AnonID)
	assert.Equal(t, "garagehub", claims.Iss)
	assert.Equal(t, "garagehub-storefront", claims.Aud)
	assert.Equal(t, session.SubTypeAnonymousSession, claims.SubType)
	assert.NotEmpty(t, claims.Jti)
	assert.Greater(t, claims.Exp, claims.Iat)
}

func TestValidateJWTRejectsWrongSecret(t *testing.T) {
	token, err := GenerateAnonymousSessionToken("anon", "iss", "aud", testSecret, time.Hour)
	require.NoError(t, err)

	_, err = ValidateJWT(token, "other-secret")
	assert.Error(t, err)
}

func TestValidateJWTRejectsExpired(t *testing.T) {
	token, err := GenerateAnonymousSessionToken("anon", "iss", "aud", testSecret, -time.Minute)
	require.NoError(t, err)

	_, err = ValidateJWT(token, testSecret)
	assert.Error(t, err)
}

func TestUserTokenIsNotAnonymous(t *testing.T) {
	token, err := GenerateUserToken("user-1", testSecret, time.Hour)
	require.NoError(t, err)

	mapClaims, err := ValidateJWT(token, testSecret)
	require.NoError(t, err)

	assert.Nil(t, AnonymousClaimsFromMap(mapClaims))
}

func TestDecodeUnverifiedClaims(t *testing.T) {
	anonID := GenerateAnonymousID()
	token, err := GenerateAnonymousSessionToken(anonID, "iss", "aud", testSecret, time.Hour)
	require.NoError(t, err)

	claims := DecodeUnverifiedClaims(token)
	require.NotNil(t, claims)
	assert.Equal(t, anonID, claims.AnonID)
}

func TestDecodeUnverifiedClaimsIgnoresSignature(t *testing.T) {
	token, err := GenerateAnonymousSessionToken("anon", "iss", "aud", testSecret, time.Hour)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".totally-wrong-signature"

	claims := DecodeUnverifiedClaims(tampered)
	require.NotNil(t, claims, "the storefront decode never checks the signature")
	assert.Equal(t, "anon", claims.AnonID)
}

func TestDecodeUnverifiedClaimsCorruptInputs(t *testing.T) {
	for _, input := range []string{
		"",
		"not.a.token.extra",
		"not.a",
		"onlyonepart",
		"a.%%%.c",
		"a." + "bm90IGpzb24" + ".c", // valid base64, invalid JSON
	} {
		assert.Nil(t, DecodeUnverifiedClaims(input), "input %q must decode to nil", input)
	}
}

func TestGenerateULIDIsUniqueAndSortable(t *testing.T) {
	a := GenerateULID()
	b := GenerateULID()
	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestGenerateAnonymousIDIsUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := GenerateAnonymousID()
		assert.False(t, seen[id])
		seen[id] = true
	}
}
