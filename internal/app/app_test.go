package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/upsolucions/up-control-access/internal/auth"
	"github.com/upsolucions/up-control-access/internal/localstore"
)

func TestNewLocalOnly(t *testing.T) {
	store := localstore.New(localstore.NewMemory())
	svc, err := New(store, nil, Options{Secret: "s3cret"})
	require.NoError(t, err)

	ctx := context.Background()
	_, err = svc.Directory.CreateUser(ctx, auth.NewUserInput{
		Name: "Root", Email: "root@example.com", Password: "secret1", Profile: "admin",
	})
	require.NoError(t, err)
	res, err := svc.Auth.Login(ctx, auth.LoginRequest{Email: "root@example.com", Password: "secret1"})
	require.NoError(t, err)
	require.NotEmpty(t, res.Token)

	sum, err := svc.Dashboard.Summary(ctx, "")
	require.NoError(t, err)
	require.Empty(t, sum.Condominiums)
}

func TestNewRequiresSecret(t *testing.T) {
	_, err := New(localstore.New(localstore.NewMemory()), nil, Options{})
	require.Error(t, err)
}
