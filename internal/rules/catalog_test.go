package rules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "viewfilter/pkg/errors"
)

func TestCatalogBuild(t *testing.T) {
	b := NewCatalogBuilder(DefaultSchema{})

	entries, err := b.Build(context.Background(), "view-1", testForm())
	require.NoError(t, err)
	require.Len(t, entries, 5)

	assert.Equal(t, CatalogEntry{
		Key:       "1",
		Text:      "Name",
		Operators: []Operator{OperatorIs, OperatorIsNot, OperatorContains, OperatorStartsWith, OperatorEndsWith},
	}, entries[0])

	assert.Equal(t, []CatalogOption{{Text: "Low", Value: "low"}, {Text: "High", Value: "high"}}, entries[3].Values)

	identity := entries[4]
	assert.Equal(t, IdentityField, identity.Key)
	assert.Equal(t, IdentityCatalogText, identity.Text)
	assert.Equal(t, []CatalogOption{
		{Text: IdentityOptionText, Value: IdentityToken},
		{Text: "admin", Value: "1"},
	}, identity.Values)
}

func TestCatalogAddsIdentityEntryWhenFormLacksIt(t *testing.T) {
	form := &FormSchema{ID: "2", Fields: []FieldDescriptor{{ID: "1", Label: "Name", Type: FieldTypeText}}}

	entries, err := NewCatalogBuilder(nil).Build(context.Background(), "view-2", form)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, IdentityField, entries[1].Key)
	assert.Equal(t, []CatalogOption{{Text: IdentityOptionText, Value: IdentityToken}}, entries[1].Values)
}

func TestCatalogSkipsNonFilterableFields(t *testing.T) {
	no := false
	form := &FormSchema{ID: "2", Fields: []FieldDescriptor{
		{ID: "1", Label: "Name", Type: FieldTypeText},
		{ID: "2", Label: "Section", Type: FieldTypeText, Filterable: &no},
	}}

	entries, err := NewCatalogBuilder(nil).Build(context.Background(), "view-2", form)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotEqual(t, "2", e.Key)
	}
}

func TestCatalogExplicitOperators(t *testing.T) {
	form := &FormSchema{ID: "2", Fields: []FieldDescriptor{
		{ID: "1", Label: "Tags", Type: FieldTypeText, Operators: []Operator{OperatorIn, OperatorNotIn}},
	}}

	entries, err := NewCatalogBuilder(nil).Build(context.Background(), "view-2", form)
	require.NoError(t, err)
	assert.Equal(t, []Operator{OperatorIn, OperatorNotIn}, entries[0].Operators)
}

func TestCatalogHooksRunInOrder(t *testing.T) {
	var order []string
	drop := func(ctx context.Context, viewID string, entries []CatalogEntry) []CatalogEntry {
		order = append(order, "drop")
		return entries[:1]
	}
	rename := func(ctx context.Context, viewID string, entries []CatalogEntry) []CatalogEntry {
		order = append(order, "rename:"+viewID)
		entries[0].Text = "Full Name"
		return entries
	}

	b := NewCatalogBuilder(nil, WithFieldFiltersHook(drop), WithFieldFiltersHook(rename))
	entries, err := b.Build(context.Background(), "view-1", testForm())

	require.NoError(t, err)
	assert.Equal(t, []string{"drop", "rename:view-1"}, order)
	assert.Equal(t, []CatalogEntry{{
		Key:       "1",
		Text:      "Full Name",
		Operators: []Operator{OperatorIs, OperatorIsNot, OperatorContains, OperatorStartsWith, OperatorEndsWith},
	}}, entries)
}

func TestCatalogContractViolations(t *testing.T) {
	_, err := NewCatalogBuilder(nil).Build(context.Background(), "view-1", nil)
	assert.True(t, pkgerrors.IsNotFound(err))

	form := &FormSchema{ID: "2", Fields: []FieldDescriptor{{Label: "No id"}}}
	_, err = NewCatalogBuilder(nil).Build(context.Background(), "view-1", form)
	require.Error(t, err)

	var appErr *pkgerrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.True(t, appErr.IsFatal())
	assert.Equal(t, pkgerrors.ErrInternal.Code, appErr.Code)
}
