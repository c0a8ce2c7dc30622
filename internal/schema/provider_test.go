package schema

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewfilter/internal/rules"
	pkgerrors "viewfilter/pkg/errors"
)

const formsYAML = `
forms:
  - id: "1"
    title: Support Requests
    fields:
      - id: "1"
        label: Name
        type: text
      - id: "5"
        label: Due
        type: date
      - id: "8"
        label: Internal notes
        type: text
        filterable: false
      - id: created_by
        label: User
        type: entry_meta
        choices:
          - text: admin
            value: "1"
views:
  "12": "1"
`

func TestParse(t *testing.T) {
	p, err := Parse([]byte(formsYAML))
	require.NoError(t, err)

	form, err := p.ViewForm(context.Background(), "12")
	require.NoError(t, err)
	assert.Equal(t, "Support Requests", form.Title)
	assert.Len(t, form.Fields, 4)

	assert.Equal(t, rules.FieldTypeDate, p.FieldType(form, "5"))
	assert.Equal(t, rules.FieldType(""), p.FieldType(form, "404"))

	filterable := p.FilterableFields(form)
	require.Len(t, filterable, 3)
	for _, fd := range filterable {
		assert.NotEqual(t, "8", fd.ID)
	}
}

func TestParseRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "forms: []\nlayouts: []\n"},
		{"form without id", "forms:\n  - title: x\n"},
		{"duplicate form", "forms:\n  - id: \"1\"\n  - id: \"1\"\n"},
		{"field without id", "forms:\n  - id: \"1\"\n    fields:\n      - label: x\n"},
		{"view to unknown form", "forms: []\nviews:\n  \"3\": \"9\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestNotFound(t *testing.T) {
	p, err := NewStatic(nil, nil)
	require.NoError(t, err)

	_, err = p.ViewForm(context.Background(), "1")
	assert.True(t, pkgerrors.IsNotFound(err))

	_, err = p.Form(context.Background(), "1")
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestFormReturnsCopy(t *testing.T) {
	p, err := NewStatic([]rules.FormSchema{{ID: "1", Fields: []rules.FieldDescriptor{{ID: "1", Label: "Name"}}}}, nil)
	require.NoError(t, err)

	form, err := p.Form(context.Background(), "1")
	require.NoError(t, err)
	form.Fields[0].Label = "changed"

	again, err := p.Form(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "Name", again.Fields[0].Label)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forms.yaml")
	require.NoError(t, os.WriteFile(path, []byte(formsYAML), 0o600))

	p, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"12"}, p.Views())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadExampleForms(t *testing.T) {
	p, err := LoadFile(filepath.Join("..", "..", "configs", "forms.example.yaml"))
	require.NoError(t, err)

	form, err := p.ViewForm(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, rules.FieldTypeDate, p.FieldType(form, "5"))

	for _, fd := range p.FilterableFields(form) {
		assert.NotEqual(t, "9", fd.ID)
	}
}
