package jwt

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cognis/internal/domain"
)

func newService(t *testing.T, ttl time.Duration) *Service {
	t.Helper()
	svc, err := New("test-secret-test-secret-test-secret", "HS256", ttl)
	require.NoError(t, err)
	return svc
}

func TestGenerateAndValidate(t *testing.T) {
	svc := newService(t, time.Hour)

	token, err := svc.GenerateToken("user-1", domain.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, domain.RoleAdmin, claims.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidate_Expired(t *testing.T) {
	svc := newService(t, -time.Minute)

	token, err := svc.GenerateToken("user-1", domain.RoleInvestigator)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_TamperedSignature(t *testing.T) {
	svc := newService(t, time.Hour)

	token, err := svc.GenerateToken("user-1", domain.RoleInvestigator)
	require.NoError(t, err)

	b := []byte(token)
	last := len(b) - 2
	if b[last] == 'A' {
		b[last] = 'B'
	} else {
		b[last] = 'A'
	}

	_, err = svc.ValidateToken(string(b))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_WrongSecret(t *testing.T) {
	svc := newService(t, time.Hour)
	other, err := New("another-secret-another-secret-xx", "HS256", time.Hour)
	require.NoError(t, err)

	token, err := other.GenerateToken("user-1", domain.RoleInvestigator)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidate_RejectsOtherAlgorithm(t *testing.T) {
	svc := newService(t, time.Hour)

	claims := Claims{
		Role: domain.RoleAdmin,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwtlib.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS512, claims).SignedString(svc.secret)
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew_RejectsNonHMAC(t *testing.T) {
	_, err := New("secret", "RS256", time.Hour)
	assert.Error(t, err)

	_, err = New("", "HS256", time.Hour)
	assert.Error(t, err)
}

func TestValidate_UnknownRole(t *testing.T) {
	svc := newService(t, time.Hour)

	token, err := svc.GenerateToken("user-1", domain.UserRole("superuser"))
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
