package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"selfcare/internal/model"
	"selfcare/internal/repository"
)

func newTestStore(t *testing.T) *repository.Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := repository.NewDB("file:"+name+"?mode=memory&cache=shared", io.Discard)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return repository.NewStore(db)
}

func newTestUser(t *testing.T, store *repository.Store, telegramID int64, first, last string) *model.User {
	t.Helper()
	username := strings.ToLower(first + last)
	user, err := store.Users.UpsertFromTelegram(context.Background(), telegramID, first, last, username)
	require.NoError(t, err)
	return user
}

// withAllies creates n allies named "Ally 0".."Ally n-1" in that order.
func withAllies(t *testing.T, store *repository.Store, owner *model.User, n int) []model.User {
	t.Helper()
	allies := make([]model.User, 0, n)
	for i := 0; i < n; i++ {
		ally := newTestUser(t, store, int64(1000+i), "Ally", fmt.Sprint(i))
		require.NoError(t, store.Users.AddAlly(context.Background(), owner.ID, ally.ID))
		allies = append(allies, *ally)
	}
	return allies
}

func categoryNames(categories []model.Category) []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	return names
}

func userNames(users []model.User) []string {
	names := make([]string, 0, len(users))
	for _, u := range users {
		names = append(names, u.DisplayName())
	}
	return names
}
