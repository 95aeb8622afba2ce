package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, clock clockwork.Clock) *Service {
	t.Helper()
	svc, err := NewService(Config{
		AccessSecret:  []byte("test-access-secret"),
		RefreshSecret: []byte("test-refresh-secret"),
	}, clock)
	require.NoError(t, err)
	return svc
}

func TestNewService_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{
			name: "valid config with defaults",
			cfg:  Config{AccessSecret: []byte("a"), RefreshSecret: []byte("b")},
		},
		{
			name:    "missing access secret",
			cfg:     Config{RefreshSecret: []byte("b")},
			wantErr: true,
		},
		{
			name:    "missing refresh secret",
			cfg:     Config{AccessSecret: []byte("a")},
			wantErr: true,
		},
		{
			name:    "same secrets",
			cfg:     Config{AccessSecret: []byte("same"), RefreshSecret: []byte("same")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewService(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DefaultAccessTokenTTL, svc.AccessTokenTTL())
			assert.Equal(t, DefaultRefreshTokenTTL, svc.RefreshTokenTTL())
		})
	}
}

func TestService_AccessTokenRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(t, clock)

	token, err := svc.GenerateAccessToken("user-1", "testuser")
	require.NoError(t, err)

	claims, err := svc.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "testuser", claims.Username)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
	assert.Equal(t, clock.Now().Add(DefaultAccessTokenTTL).Unix(), claims.ExpiresAt.Unix())
}

func TestService_TokensAreUnique(t *testing.T) {
	svc := newTestService(t, clockwork.NewFakeClock())

	t1, err := svc.GenerateRefreshToken("user-1", "testuser")
	require.NoError(t, err)
	t2, err := svc.GenerateRefreshToken("user-1", "testuser")
	require.NoError(t, err)

	// одинаковые claims и время, но разный jti
	assert.NotEqual(t, t1, t2)
}

func TestService_KeysAreIndependent(t *testing.T) {
	svc := newTestService(t, clockwork.NewFakeClock())

	access, err := svc.GenerateAccessToken("user-1", "testuser")
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken("user-1", "testuser")
	require.NoError(t, err)

	_, err = svc.ValidateRefreshToken(access)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.ValidateAccessToken(refresh)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err)
}

func TestService_Expiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(t, clock)

	access, err := svc.GenerateAccessToken("user-1", "testuser")
	require.NoError(t, err)
	refresh, err := svc.GenerateRefreshToken("user-1", "testuser")
	require.NoError(t, err)

	clock.Advance(DefaultAccessTokenTTL + time.Second)

	_, err = svc.ValidateAccessToken(access)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.NoError(t, err, "refresh token живет 7 дней")

	clock.Advance(DefaultRefreshTokenTTL)

	_, err = svc.ValidateRefreshToken(refresh)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestService_RejectsForgedTokens(t *testing.T) {
	clock := clockwork.NewFakeClock()
	svc := newTestService(t, clock)

	otherKey, err := NewService(Config{
		AccessSecret:  []byte("attacker-access"),
		RefreshSecret: []byte("attacker-refresh"),
	}, clock)
	require.NoError(t, err)

	forged, err := otherKey.GenerateAccessToken("user-1", "testuser")
	require.NoError(t, err)

	noneToken, err := gojwt.NewWithClaims(gojwt.SigningMethodNone, Claims{
		Username: "testuser",
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "user-1",
			Issuer:    DefaultIssuer,
			ExpiresAt: gojwt.NewNumericDate(clock.Now().Add(time.Hour)),
		},
	}).SignedString(gojwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "other secret", token: forged},
		{name: "alg none", token: noneToken},
		{name: "garbage", token: "not.a.token"},
		{name: "empty", token: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateAccessToken(tt.token)
			assert.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}

func TestService_GenerateRequiresUserID(t *testing.T) {
	svc := newTestService(t, clockwork.NewFakeClock())

	_, err := svc.GenerateAccessToken("", "testuser")
	assert.Error(t, err)
}
