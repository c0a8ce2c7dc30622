// Package mergetag expands the {tag} placeholders allowed in filter values.
//
// Supported tags: {form_id}, {form_title}, {date_mdy}, {date_dmy},
// {user:id}, {user_id} and {get:<param>}. Unknown tags are kept verbatim.
package mergetag

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"viewfilter/internal/rules"
)

var tagPattern = regexp.MustCompile(`\{([a-z_]+)(?::([^{}]+))?\}`)

type queryKey struct{}

// WithQuery makes the request's query parameters available to {get:...}.
func WithQuery(ctx context.Context, query url.Values) context.Context {
	return context.WithValue(ctx, queryKey{}, query)
}

func queryFrom(ctx context.Context) url.Values {
	if q, ok := ctx.Value(queryKey{}).(url.Values); ok {
		return q
	}
	return nil
}

type Expander struct {
	clock rules.Clock
}

func New(clock rules.Clock) *Expander {
	if clock == nil {
		clock = rules.NewSystemClock(nil)
	}
	return &Expander{clock: clock}
}

func (e *Expander) Expand(ctx context.Context, text string, form *rules.FormSchema, user rules.UserID) string {
	if !strings.Contains(text, "{") {
		return text
	}

	return tagPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := tagPattern.FindStringSubmatch(match)
		name, arg := parts[1], parts[2]

		switch {
		case name == "form_id" && arg == "" && form != nil:
			return form.ID
		case name == "form_title" && arg == "" && form != nil:
			return form.Title
		case name == "date_mdy" && arg == "":
			return e.clock.LocalNow().Format("01/02/2006")
		case name == "date_dmy" && arg == "":
			return e.clock.LocalNow().Format("02/01/2006")
		case name == "user_id" && arg == "", name == "user" && arg == "id":
			return user.String()
		case name == "get" && arg != "":
			if q := queryFrom(ctx); q != nil {
				return q.Get(arg)
			}
			return ""
		}
		return match
	})
}
