package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scriptsentries/clearance-engine/pkg/apperrors"
	"github.com/scriptsentries/clearance-engine/pkg/auth"
)

func TestAccountService_Register(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewAccountService(repo, mockTokenIssuer{}, zap.NewNop())

	session, err := svc.Register(context.Background(), RegisterRequest{
		Username: " ana ",
		Email:    "ana@example.com",
		Password: "correct horse",
	})
	require.NoError(t, err)

	assert.Equal(t, "token-for-ana", session.Token)
	assert.Equal(t, "ana", session.User.Username)

	stored := repo.users[session.User.ID]
	require.NotNil(t, stored)
	assert.NotEqual(t, "correct horse", stored.PasswordHash)
	assert.NoError(t, auth.VerifyPassword(stored.PasswordHash, "correct horse"))
}

func TestAccountService_Register_Validation(t *testing.T) {
	tests := []struct {
		name string
		req  RegisterRequest
	}{
		{"short username", RegisterRequest{Username: "ab", Email: "ab@example.com", Password: "longenough"}},
		{"username with spaces", RegisterRequest{Username: "ana b", Email: "ab@example.com", Password: "longenough"}},
		{"bad email", RegisterRequest{Username: "ana", Email: "not-an-email", Password: "longenough"}},
		{"short password", RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "short"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewAccountService(newMockUserRepository(), mockTokenIssuer{}, zap.NewNop())
			_, err := svc.Register(context.Background(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestAccountService_Register_Conflict(t *testing.T) {
	repo := newMockUserRepository()
	repo.createErr = apperrors.ErrConflict
	svc := NewAccountService(repo, mockTokenIssuer{}, zap.NewNop())

	_, err := svc.Register(context.Background(), RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "longenough"})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAccountService_Login(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewAccountService(repo, mockTokenIssuer{}, zap.NewNop())
	registered, err := svc.Register(context.Background(), RegisterRequest{Username: "ana", Email: "ana@example.com", Password: "longenough"})
	require.NoError(t, err)

	session, err := svc.Login(context.Background(), "ANA@example.com", "longenough")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, session.User.ID)
	assert.Equal(t, registered.User.ID, repo.touched[0])

	_, wrongPassword := svc.Login(context.Background(), "ana@example.com", "nope-nope")
	_, unknownEmail := svc.Login(context.Background(), "bob@example.com", "longenough")
	assert.ErrorIs(t, wrongPassword, apperrors.ErrInvalidCredentials)
	assert.ErrorIs(t, unknownEmail, apperrors.ErrInvalidCredentials)
	assert.Equal(t, wrongPassword.Error(), unknownEmail.Error())
}
