package schema

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"viewfilter/internal/rules"
	pkgerrors "viewfilter/pkg/errors"
)

type document struct {
	Forms []rules.FormSchema `yaml:"forms"`
	Views map[string]string  `yaml:"views"`
}

// Provider serves form schemas and the view to form mapping from memory.
type Provider struct {
	rules.DefaultSchema
	forms map[string]*rules.FormSchema
	views map[string]string
}

func NewStatic(forms []rules.FormSchema, views map[string]string) (*Provider, error) {
	p := &Provider{
		forms: make(map[string]*rules.FormSchema, len(forms)),
		views: make(map[string]string, len(views)),
	}

	for i := range forms {
		form := forms[i]
		if form.ID == "" {
			return nil, fmt.Errorf("form at index %d has no id", i)
		}
		if _, dup := p.forms[form.ID]; dup {
			return nil, fmt.Errorf("duplicate form id %q", form.ID)
		}
		seen := make(map[string]struct{}, len(form.Fields))
		for j, fd := range form.Fields {
			if fd.ID == "" {
				return nil, fmt.Errorf("form %q: field at index %d has no id", form.ID, j)
			}
			if _, dup := seen[fd.ID]; dup {
				return nil, fmt.Errorf("form %q: duplicate field id %q", form.ID, fd.ID)
			}
			seen[fd.ID] = struct{}{}
		}
		p.forms[form.ID] = &form
	}

	for viewID, formID := range views {
		if _, ok := p.forms[formID]; !ok {
			return nil, fmt.Errorf("view %q references unknown form %q", viewID, formID)
		}
		p.views[viewID] = formID
	}

	return p, nil
}

// Parse reads a forms document. Unknown keys are rejected.
func Parse(data []byte) (*Provider, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode forms document: %w", err)
	}
	return NewStatic(doc.Forms, doc.Views)
}

func LoadFile(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read forms file: %w", err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

func (p *Provider) Form(_ context.Context, formID string) (*rules.FormSchema, error) {
	form, ok := p.forms[formID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "form not found").WithDetail("form_id", formID)
	}
	out := *form
	out.Fields = append([]rules.FieldDescriptor(nil), form.Fields...)
	return &out, nil
}

func (p *Provider) ViewForm(ctx context.Context, viewID string) (*rules.FormSchema, error) {
	formID, ok := p.views[viewID]
	if !ok {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", "view has no form").WithDetail("view_id", viewID)
	}
	return p.Form(ctx, formID)
}

func (p *Provider) Views() []string {
	out := make([]string, 0, len(p.views))
	for id := range p.views {
		out = append(out, id)
	}
	return out
}
