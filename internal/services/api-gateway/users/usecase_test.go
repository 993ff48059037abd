package users

import (
	"context"
	"testing"

	"github.com/NordCoder/crewcruise/internal/domain/user"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFind(t *testing.T) {
	uc := New(&stubRepo{rows: map[int64]user.User{
		7: {ID: 7, Email: "bosun@x.com"},
	}})
	ctx := context.Background()

	got, err := uc.Find(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, "bosun@x.com", got.Email)

	got, err = uc.Find(ctx, " bosun@x.com ")
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ID)

	_, err = uc.Find(ctx, "8")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = uc.Find(ctx, "nobody@x.com")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProfile_Empty(t *testing.T) {
	uc := New(&stubRepo{rows: map[int64]user.User{}})
	_, err := uc.UpdateProfile(context.Background(), 1, user.Profile{})
	require.ErrorIs(t, err, ErrEmptyUpdate)
}
