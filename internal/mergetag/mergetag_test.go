package mergetag

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"viewfilter/internal/rules"
)

func TestExpand(t *testing.T) {
	clock := rules.ClockFunc(func() time.Time {
		return time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC)
	})
	e := New(clock)
	form := &rules.FormSchema{ID: "4", Title: "Orders"}
	ctx := WithQuery(context.Background(), url.Values{"status": {"open"}})

	tests := []struct {
		name string
		text string
		want string
	}{
		{"plain text", "hello", "hello"},
		{"empty", "", ""},
		{"form id", "form-{form_id}", "form-4"},
		{"form title", "{form_title}", "Orders"},
		{"date mdy", "{date_mdy}", "03/05/2024"},
		{"date dmy", "{date_dmy}", "05/03/2024"},
		{"user id", "{user:id}", "7"},
		{"user id alias", "{user_id}", "7"},
		{"query param", "{get:status}", "open"},
		{"missing query param", "{get:page}", ""},
		{"unknown tag", "{entry_id}", "{entry_id}"},
		{"unknown user property", "{user:email}", "{user:email}"},
		{"several tags", "{form_id}/{user_id}/{nope}", "4/7/{nope}"},
		{"unbalanced brace", "{form_id", "{form_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Expand(ctx, tt.text, form, 7))
		})
	}
}

func TestExpandIsIdempotentWithoutTags(t *testing.T) {
	e := New(nil)
	once := e.Expand(context.Background(), "created_by", nil, 1)
	assert.Equal(t, "created_by", e.Expand(context.Background(), once, nil, 1))
}

func TestExpandWithoutFormKeepsFormTags(t *testing.T) {
	e := New(nil)
	assert.Equal(t, "{form_title}", e.Expand(context.Background(), "{form_title}", nil, 1))
	assert.Equal(t, "", e.Expand(context.Background(), "{get:q}", nil, 1))
}
