package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "live-quiz-backend/internal/errors"
	"live-quiz-backend/internal/services"
	"live-quiz-backend/internal/testutil"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	auth := services.NewAuthService(testutil.NewTestDB(t), "test-secret", time.Hour)
	ctx := context.Background()

	token, err := auth.Register(ctx, "host1", "password123")
	require.NoError(t, err)
	hostID, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.NotZero(t, hostID)

	_, err = auth.Register(ctx, "host1", "other-password")
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	token, err = auth.Login(ctx, "host1", "password123")
	require.NoError(t, err)
	loggedIn, err := auth.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, hostID, loggedIn)

	_, err = auth.Login(ctx, "host1", "wrong")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
	_, err = auth.Login(ctx, "nobody", "password123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestAuth_ValidateToken_Rejects(t *testing.T) {
	db := testutil.NewTestDB(t)
	auth := services.NewAuthService(db, "test-secret", time.Hour)

	_, err := auth.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	other := services.NewAuthService(db, "other-secret", time.Hour)
	foreign, err := other.GenerateToken(1)
	require.NoError(t, err)
	_, err = auth.ValidateToken(foreign)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)

	expired := services.NewAuthService(db, "test-secret", -time.Minute)
	stale, err := expired.GenerateToken(1)
	require.NoError(t, err)
	_, err = auth.ValidateToken(stale)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}
