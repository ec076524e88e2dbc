package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAndAttachCreatesMissingCategories(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	svc := NewCategoryService(store)
	strategies := NewStrategyService(store)

	existing, created, err := svc.Create(ctx, owner, "Test Category")
	require.NoError(t, err)
	require.True(t, created)

	strategy, err := strategies.Create(ctx, owner, StrategyInput{Name: "Walk"})
	require.NoError(t, err)

	attached, err := svc.ResolveAndAttach(ctx, owner, strategy.ID, []string{"Some New Category", " Test Category ", "", "Some New Category"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Some New Category", "Test Category"}, categoryNames(attached))
	assert.Equal(t, existing.ID, attached[1].ID)

	all, err := svc.List(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	loaded, err := strategies.Get(ctx, owner, strategy.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Some New Category", "Test Category"}, categoryNames(loaded.Categories))
}

func TestResolveIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")

	first, err := resolveCategories(ctx, store.Categories, owner.ID, []string{"Calm"})
	require.NoError(t, err)
	second, err := resolveCategories(ctx, store.Categories, owner.ID, []string{"Calm"})
	require.NoError(t, err)

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestResolveIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")

	categories, err := resolveCategories(ctx, store.Categories, owner.ID, []string{"calm", "Calm"})
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.NotEqual(t, categories[0].ID, categories[1].ID)

	reversed, err := resolveCategories(ctx, store.Categories, owner.ID, []string{"Calm", "calm"})
	require.NoError(t, err)
	assert.Equal(t, []uint{categories[1].ID, categories[0].ID}, []uint{reversed[0].ID, reversed[1].ID})
}

func TestResolveIsScopedToOwner(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	alice := newTestUser(t, store, 1, "Alice", "")
	bob := newTestUser(t, store, 2, "Bob", "")

	mine, err := resolveCategories(ctx, store.Categories, alice.ID, []string{"Calm"})
	require.NoError(t, err)
	theirs, err := resolveCategories(ctx, store.Categories, bob.ID, []string{"Calm"})
	require.NoError(t, err)

	assert.NotEqual(t, mine[0].ID, theirs[0].ID)
	assert.Equal(t, bob.ID, theirs[0].UserID)
}

func TestQuickCreateReturnsExistingCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	svc := NewCategoryService(store)

	first, created, err := svc.Create(ctx, owner, "Calm")
	require.NoError(t, err)
	assert.True(t, created)

	again, created, err := svc.Create(ctx, owner, "  Calm ")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, again.ID)

	_, _, err = svc.Create(ctx, owner, "   ")
	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)

	_, _, err = svc.Create(ctx, nil, "Calm")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRenameCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	other := newTestUser(t, store, 2, "Kim", "")
	svc := NewCategoryService(store)

	calm, _, err := svc.Create(ctx, owner, "Calm")
	require.NoError(t, err)
	_, _, err = svc.Create(ctx, owner, "Focus")
	require.NoError(t, err)

	_, err = svc.Rename(ctx, owner, calm.ID, "Focus")
	assert.ErrorIs(t, err, ErrDuplicateCategoryName)

	renamed, err := svc.Rename(ctx, owner, calm.ID, "Peace")
	require.NoError(t, err)
	assert.Equal(t, "Peace", renamed.Name)

	_, err = svc.Rename(ctx, other, calm.ID, "Mine")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	other := newTestUser(t, store, 2, "Kim", "")
	svc := NewCategoryService(store)
	strategies := NewStrategyService(store)

	strategy, err := strategies.Create(ctx, owner, StrategyInput{Name: "Walk", Categories: []string{"Calm", "Outdoors"}})
	require.NoError(t, err)
	calm := strategy.Categories[0]

	assert.ErrorIs(t, svc.Delete(ctx, other, calm.ID), ErrNotFound)
	require.NoError(t, svc.Delete(ctx, owner, calm.ID))

	loaded, err := strategies.Get(ctx, owner, strategy.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Outdoors"}, categoryNames(loaded.Categories))
}

func TestResolveAndAttachRejectsForeignStrategy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	owner := newTestUser(t, store, 1, "Sam", "")
	other := newTestUser(t, store, 2, "Kim", "")

	strategy, err := NewStrategyService(store).Create(ctx, owner, StrategyInput{Name: "Walk"})
	require.NoError(t, err)

	_, err = NewCategoryService(store).ResolveAndAttach(ctx, other, strategy.ID, []string{"Sneaky"})
	assert.ErrorIs(t, err, ErrNotFound)

	categories, err := store.Categories.ListByUser(ctx, other.ID)
	require.NoError(t, err)
	assert.Empty(t, categories)
}

func TestNormalizeCategoryName(t *testing.T) {
	assert.Equal(t, "Calm Mind", NormalizeCategoryName("  Calm Mind\t"))
	assert.Empty(t, NormalizeCategoryName("   "))
}
