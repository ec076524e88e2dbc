package repository

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"selfcare/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := NewDB("file:"+name+"?mode=memory&cache=shared", io.Discard)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewStore(db)
}

func newUser(t *testing.T, store *Store, telegramID int64, first string) *model.User {
	t.Helper()
	user, err := store.Users.UpsertFromTelegram(context.Background(), telegramID, first, "", strings.ToLower(strings.ReplaceAll(first, " ", "")))
	require.NoError(t, err)
	return user
}

func TestCategoryNamesUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newUser(t, store, 1, "Alice")
	bob := newUser(t, store, 2, "Bob")

	require.NoError(t, store.Categories.Create(ctx, &model.Category{UserID: alice.ID, Name: "Calm"}))

	err := store.Categories.Create(ctx, &model.Category{UserID: alice.ID, Name: "Calm"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	assert.NoError(t, store.Categories.Create(ctx, &model.Category{UserID: alice.ID, Name: "calm"}))
	assert.NoError(t, store.Categories.Create(ctx, &model.Category{UserID: bob.ID, Name: "Calm"}))

	found, err := store.Categories.FindByOwnerAndName(ctx, alice.ID, "calm")
	require.NoError(t, err)
	assert.Equal(t, "calm", found.Name)

	_, err = store.Categories.FindByOwnerAndName(ctx, bob.ID, "calm")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	list, err := store.Categories.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestAllyOrderAndSymmetry(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newUser(t, store, 1, "Owner")
	zed := newUser(t, store, 2, "Zed")
	amy := newUser(t, store, 3, "Amy")

	require.NoError(t, store.Users.AddAlly(ctx, owner.ID, zed.ID))
	require.NoError(t, store.Users.AddAlly(ctx, owner.ID, amy.ID))
	require.NoError(t, store.Users.AddAlly(ctx, owner.ID, zed.ID))

	allies, err := store.Users.ListAllies(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, allies, 2)
	assert.Equal(t, "Zed", allies[0].FirstName)
	assert.Equal(t, "Amy", allies[1].FirstName)

	ok, err := store.Users.IsAlly(ctx, amy.ID, owner.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Users.IsAlly(ctx, amy.ID, zed.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := store.Users.FindByUsername(ctx, "@amy")
	require.NoError(t, err)
	assert.Equal(t, amy.ID, found.ID)
}

func TestStrategyVisibility(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newUser(t, store, 1, "Owner")
	friend := newUser(t, store, 2, "Friend")
	other := newUser(t, store, 3, "Other")
	stranger := newUser(t, store, 4, "Stranger")
	require.NoError(t, store.Users.AddAlly(ctx, owner.ID, friend.ID))
	require.NoError(t, store.Users.AddAlly(ctx, owner.ID, other.ID))

	strategy := &model.Strategy{UserID: owner.ID, Name: "Breathing"}
	require.NoError(t, store.Strategies.Create(ctx, strategy))
	require.NoError(t, store.Strategies.SetViewers(ctx, strategy, model.ViewerModeExplicit, []model.User{*friend}))

	_, err := store.Strategies.FindVisible(ctx, friend.ID, strategy.ID)
	assert.NoError(t, err)
	_, err = store.Strategies.FindVisible(ctx, other.ID, strategy.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = store.Strategies.FindVisible(ctx, owner.ID, strategy.ID)
	assert.NoError(t, err)

	require.NoError(t, store.Strategies.SetViewers(ctx, strategy, model.ViewerModeAll, nil))
	_, err = store.Strategies.FindVisible(ctx, other.ID, strategy.ID)
	assert.NoError(t, err)
	_, err = store.Strategies.FindVisible(ctx, stranger.ID, strategy.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	shared, err := store.Strategies.ListShared(ctx, friend.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	assert.Equal(t, strategy.ID, shared[0].ID)

	mine, err := store.Strategies.ListShared(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, mine)

	loaded, err := store.Strategies.FindByID(ctx, owner.ID, strategy.ID)
	require.NoError(t, err)
	assert.Empty(t, loaded.ViewerUsers)
	assert.Equal(t, model.AllAllies{}, loaded.Viewers())
}

func TestDeleteStrategyKeepsCategories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newUser(t, store, 1, "Owner")

	calm := model.Category{UserID: owner.ID, Name: "Calm"}
	require.NoError(t, store.Categories.Create(ctx, &calm))
	strategy := &model.Strategy{UserID: owner.ID, Name: "Breathing", CommentsAllowed: true}
	require.NoError(t, store.Strategies.Create(ctx, strategy))
	require.NoError(t, store.Strategies.ReplaceCategories(ctx, strategy, []model.Category{calm}))
	require.NoError(t, store.Strategies.AddComment(ctx, &model.Comment{StrategyID: strategy.ID, UserID: owner.ID, Body: "works"}))

	loaded, err := store.Strategies.FindByID(ctx, owner.ID, strategy.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Categories, 1)
	require.Len(t, loaded.Comments, 1)
	assert.Equal(t, "Owner", loaded.Comments[0].User.FirstName)

	require.NoError(t, store.Strategies.Delete(ctx, loaded))

	var links, comments int64
	require.NoError(t, store.db.Table("strategy_categories").Count(&links).Error)
	require.NoError(t, store.db.Model(&model.Comment{}).Count(&comments).Error)
	assert.Zero(t, links)
	assert.Zero(t, comments)

	_, err = store.Categories.FindByID(ctx, owner.ID, calm.ID)
	assert.NoError(t, err)
}

func TestDeleteCategoryUnlinksStrategies(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newUser(t, store, 1, "Owner")

	calm := model.Category{UserID: owner.ID, Name: "Calm"}
	focus := model.Category{UserID: owner.ID, Name: "Focus"}
	require.NoError(t, store.Categories.Create(ctx, &calm))
	require.NoError(t, store.Categories.Create(ctx, &focus))
	strategy := &model.Strategy{UserID: owner.ID, Name: "Breathing"}
	require.NoError(t, store.Strategies.Create(ctx, strategy))
	require.NoError(t, store.Strategies.ReplaceCategories(ctx, strategy, []model.Category{calm, focus}))

	require.NoError(t, store.Categories.Delete(ctx, &calm))

	loaded, err := store.Strategies.FindByID(ctx, owner.ID, strategy.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Categories, 1)
	assert.Equal(t, "Focus", loaded.Categories[0].Name)
}

func TestMedicationDeleteIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newUser(t, store, 1, "Alice")
	bob := newUser(t, store, 2, "Bob")

	med := &model.Medication{UserID: alice.ID, Name: "Sertraline"}
	require.NoError(t, store.Medications.Create(ctx, med))
	require.NoError(t, store.Medications.Create(ctx, &model.Medication{UserID: alice.ID, Name: "Vitamin D", DailyReminderEnabled: true}))

	rows, err := store.Medications.Delete(ctx, bob.ID, med.ID)
	require.NoError(t, err)
	assert.Zero(t, rows)

	rows, err = store.Medications.Delete(ctx, alice.ID, med.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	left, err := store.Medications.ListByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Vitamin D", left[0].Name)

	withReminders, err := store.Medications.ListWithReminders(ctx, alice.ID)
	require.NoError(t, err)
	assert.Len(t, withReminders, 1)
}

func TestTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newUser(t, store, 1, "Owner")

	err := store.Transaction(ctx, func(tx *Store) error {
		if err := tx.Categories.Create(ctx, &model.Category{UserID: owner.ID, Name: "Calm"}); err != nil {
			return err
		}
		return tx.Categories.Create(ctx, &model.Category{UserID: owner.ID, Name: "Calm"})
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	list, err := store.Categories.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
