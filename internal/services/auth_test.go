package services

import (
	"context"
	"testing"

	"github.com/diewo77/go-factures/internal/apperr"
	"github.com/diewo77/go-factures/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	s, err := f.auth.Register(ctx, RegisterInput{Email: " Carol@Shop.TN ", Password: "secret1", FirstName: "Carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol@shop.tn", s.Email)
	assert.Equal(t, string(models.RoleClient), s.Role)
	assert.NotEmpty(t, s.Token)

	var u models.User
	require.NoError(t, f.db.Preload("Profile").First(&u, s.ID).Error)
	require.NotNil(t, u.Profile)
	assert.NotEqual(t, "secret1", u.Password, "password is stored hashed")
	assert.True(t, f.auth.UserExists(ctx, u.ID))
	assert.False(t, f.auth.UserExists(ctx, 9999))

	in, err := f.auth.Login(ctx, "CAROL@shop.tn", "secret1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, in.ID)

	_, err = f.auth.Login(ctx, "carol@shop.tn", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = f.auth.Login(ctx, "nobody@shop.tn", "secret1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}

func TestAuth_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.auth.Register(ctx, RegisterInput{Email: "alice@shop.tn", Password: "secret1"})
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Equal(t, "email_taken", ae.Details["email"])

	_, err = f.auth.Register(ctx, RegisterInput{Email: "not-an-email", Password: "123"})
	require.ErrorAs(t, err, &ae)
	assert.Contains(t, ae.Details, "email")
	assert.Contains(t, ae.Details, "password")

	_, err = f.auth.Register(ctx, RegisterInput{Email: "dave@shop.tn"})
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "required", ae.Details["password"])
}
