package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTargetItem(t *testing.T) {
	target := TargetInfo{
		Name: "web-1",
		Addr: "web.internal:22",
		User: "deploy",
		Tags: []string{"prod", "edge"},
	}

	item := targetItem{target: target}

	t.Run("Title", func(t *testing.T) {
		assert.Equal(t, "web-1", item.Title())
	})

	t.Run("Description", func(t *testing.T) {
		desc := item.Description()
		assert.Contains(t, desc, "deploy@web.internal:22")
		assert.Contains(t, desc, "prod")
		assert.Contains(t, desc, "edge")
	})

	t.Run("FilterValue", func(t *testing.T) {
		filter := item.FilterValue()
		assert.Contains(t, filter, "web-1")
		assert.Contains(t, filter, "web.internal:22")
		assert.Contains(t, filter, "prod")
	})
}

func TestTargetItemNoUser(t *testing.T) {
	item := targetItem{target: TargetInfo{Name: "db", Addr: "db.internal:22"}}

	desc := item.Description()
	assert.Contains(t, desc, "db.internal:22")
	assert.NotContains(t, desc, "@")
}

func TestNewTargetPickerModel(t *testing.T) {
	targets := []TargetInfo{
		{Name: "web-1", Addr: "web:22"},
		{Name: "db-1", Addr: "db:22"},
	}

	model := NewTargetPickerModel(targets)

	assert.Len(t, model.targets, 2)
	assert.Nil(t, model.Selected())
	assert.False(t, model.quitting)
}

func TestPickTarget_SingleTargetSkipsPicker(t *testing.T) {
	targets := []TargetInfo{{Name: "only", Addr: "only:22"}}

	picked, err := PickTarget(targets)
	require.NoError(t, err)
	require.NotNil(t, picked)
	assert.Equal(t, "only", picked.Name)
}

func TestPickTarget_Empty(t *testing.T) {
	_, err := PickTarget(nil)
	assert.Error(t, err)
}
