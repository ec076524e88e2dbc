package bot

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"selfcare/internal/model"
)

func TestViewersSentence(t *testing.T) {
	ally := func(n string) model.User { return model.User{FirstName: "Ally", LastName: n} }
	explicit := model.ExplicitViewers{}

	assert.Equal(t, "Only you can see this strategy.", viewersSentence(explicit, nil))
	assert.Equal(t, "Ally 0 is a viewer.", viewersSentence(explicit, []model.User{ally("0")}))
	assert.Equal(t, "Ally 0 and Ally 1 are viewers.", viewersSentence(explicit, []model.User{ally("0"), ally("1")}))
	assert.Equal(t, "Ally 0, Ally 1, and Ally 2 are viewers.",
		viewersSentence(explicit, []model.User{ally("0"), ally("1"), ally("2")}))
	assert.Equal(t, "All your allies are viewers.", viewersSentence(model.AllAllies{}, nil))
}

func TestCategoriesLineIsSorted(t *testing.T) {
	line := categoriesLine([]model.Category{{Name: "Test Category"}, {Name: "Another"}, {Name: "Some"}})
	assert.Equal(t, "Categories: Another, Some, Test Category", line)
}

func TestToggleViewer(t *testing.T) {
	sel := toggleViewer(model.AllAllies{}, 3)
	assert.Equal(t, model.ExplicitViewers{AllyIDs: []uint{3}}, sel)

	sel = toggleViewer(sel, 5)
	assert.Equal(t, model.ExplicitViewers{AllyIDs: []uint{3, 5}}, sel)

	sel = toggleViewer(sel, 3)
	assert.Equal(t, model.ExplicitViewers{AllyIDs: []uint{5}}, sel)
}

func TestAddCategoryName(t *testing.T) {
	names := addCategoryName(nil, " Calm ")
	names = addCategoryName(names, "Calm")
	names = addCategoryName(names, "calm")
	names = addCategoryName(names, "  ")
	assert.Equal(t, []string{"Calm", "calm"}, names)
}

func TestSplitQuantity(t *testing.T) {
	amount, unit := splitQuantity(" 2 tablets ")
	assert.Equal(t, "2", amount)
	assert.Equal(t, "tablets", unit)

	amount, unit = splitQuantity("5")
	assert.Equal(t, "5", amount)
	assert.Empty(t, unit)
}
