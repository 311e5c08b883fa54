package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athathco/athath-backend/pkg/config"
	"github.com/athathco/athath-backend/pkg/enums"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "athath-test",
		ExpirationMinutes: 15,
	}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	retailer := uuid.New()
	payload := AccessTokenPayload{
		SubjectID:  uuid.New(),
		Role:       enums.ActorRoleRetailer,
		RetailerID: &retailer,
	}

	token, err := MintAccessToken(cfg, time.Now(), payload)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, payload.SubjectID, claims.SubjectID)
	assert.Equal(t, enums.ActorRoleRetailer, claims.Role)
	require.NotNil(t, claims.RetailerID)
	assert.Equal(t, retailer, *claims.RetailerID)
	assert.NotEmpty(t, claims.ID)
}

func TestParseAccessTokenWrongSecret(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now(), AccessTokenPayload{
		SubjectID: uuid.New(),
		Role:      enums.ActorRoleCustomer,
	})
	require.NoError(t, err)

	other := cfg
	other.Secret = "different-secret"
	_, err = ParseAccessToken(other, token)
	assert.Error(t, err)
}

func TestParseAccessTokenExpired(t *testing.T) {
	t.Parallel()

	cfg := testJWTConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), AccessTokenPayload{
		SubjectID: uuid.New(),
		Role:      enums.ActorRoleCustomer,
	})
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	assert.Error(t, err)
}

func TestMintAccessTokenInvalidRole(t *testing.T) {
	t.Parallel()

	_, err := MintAccessToken(testJWTConfig(), time.Now(), AccessTokenPayload{
		SubjectID: uuid.New(),
		Role:      enums.ActorRole("superuser"),
	})
	assert.Error(t, err)
}
