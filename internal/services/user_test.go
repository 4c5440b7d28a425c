package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viewtube/apiserver/internal/store"
)

func stringPtr(s string) *string { return &s }

func TestUpdateAccount_PartialPatch(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users)
	user := addUser(t, users, "original")

	updated, err := svc.UpdateAccount(context.Background(), user.ID, AccountPatch{
		FullName: stringPtr("New Name"),
	})
	require.NoError(t, err)

	assert.Equal(t, "New Name", updated.FullName)
	assert.Equal(t, "original", updated.Username, "unpatched fields must be unchanged")
	assert.Equal(t, "original@example.com", updated.Email)
}

func TestUpdateAccount_LowercasesUsername(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users)
	user := addUser(t, users, "original")

	updated, err := svc.UpdateAccount(context.Background(), user.ID, AccountPatch{
		Username: stringPtr("  RenamedUser "),
	})
	require.NoError(t, err)
	assert.Equal(t, "renameduser", updated.Username)
}

func TestUpdateAccount_BlankFields(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users)
	user := addUser(t, users, "original")

	for name, patch := range map[string]AccountPatch{
		"fullName": {FullName: stringPtr("   ")},
		"email":    {Email: stringPtr("   ")},
		"userName": {Username: stringPtr("   ")},
	} {
		_, err := svc.UpdateAccount(context.Background(), user.ID, patch)
		assert.ErrorIs(t, err, ErrBlankField, "blank %s must be rejected", name)
	}

	stored, err := users.GetByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", stored.Username, "rejected patch must not mutate the record")
	assert.Equal(t, "original@example.com", stored.Email)
	assert.Equal(t, "User original", stored.FullName)
}

func TestUpdateAccount_Conflict(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users)
	addUser(t, users, "first")
	second := addUser(t, users, "second")

	_, err := svc.UpdateAccount(context.Background(), second.ID, AccountPatch{
		Username: stringPtr("first"),
	})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUpdateAvatarAndCover(t *testing.T) {
	users := newFakeUserRepo()
	svc := NewUserService(users)
	user := addUser(t, users, "someone")

	updated, err := svc.UpdateAvatar(context.Background(), user.ID, "/media/avatars/new.png")
	require.NoError(t, err)
	assert.Equal(t, "/media/avatars/new.png", updated.AvatarURL)

	updated, err = svc.UpdateCoverImage(context.Background(), user.ID, "/media/covers/new.png")
	require.NoError(t, err)
	assert.Equal(t, "/media/covers/new.png", updated.CoverImageURL)
}

func TestAccountPatch_Empty(t *testing.T) {
	assert.True(t, AccountPatch{}.Empty())
	assert.False(t, AccountPatch{Email: stringPtr("a@b.c")}.Empty())
}
