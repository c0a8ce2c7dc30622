package rules

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"viewfilter/internal/logger"
)

func newTestCompiler() *Compiler {
	return NewCompiler(newTestResolver(logger.NopLogger()), logger.NopLogger())
}

func ptrMode(m Mode) *Mode {
	return &m
}

func TestCompileEndToEndIdentity(t *testing.T) {
	c := newTestCompiler()
	rs := NewRuleSet(ModeAll, NewRule(IdentityField, OperatorIs, IdentityToken))

	got := c.Compile(context.Background(), "view-1", &rs, testForm(), 7, Criteria{})

	require.NotNil(t, got.FieldFilters)
	assert.Equal(t, FieldFilters{
		Mode: ModeAll,
		List: []ResolvedRule{{Field: IdentityField, Operator: OperatorIs, Value: UserID(7)}},
	}, *got.FieldFilters)

	body, err := json.Marshal(got)
	require.NoError(t, err)
	assert.JSONEq(t, `{"field_filters":{"mode":"all","list":[{"key":"created_by","operator":"is","value":7}]}}`, string(body))
}

func TestCompileActivationThreshold(t *testing.T) {
	c := newTestCompiler()
	base := Criteria{Status: "active"}

	tests := []struct {
		name    string
		rs      RuleSet
		applied bool
	}{
		{
			name:    "mode only",
			rs:      RuleSet{Mode: ptrMode(ModeAll)},
			applied: false,
		},
		{
			name:    "one rule without mode",
			rs:      RuleSet{Rules: []Rule{NewRule("1", OperatorIs, "a")}},
			applied: false,
		},
		{
			name:    "one rule with mode",
			rs:      NewRuleSet(ModeAny, NewRule("1", OperatorIs, "a")),
			applied: true,
		},
		{
			name:    "two rules without mode",
			rs:      RuleSet{Rules: []Rule{NewRule("1", OperatorIs, "a"), NewRule("3", OperatorGreater, "2")}},
			applied: true,
		},
		{
			name:    "rules with empty values and mode",
			rs:      NewRuleSet(ModeAll, NewRule("1", OperatorIs, ""), Rule{Field: "3", Operator: OperatorIs}),
			applied: false,
		},
		{
			name:    "empty rule set",
			rs:      RuleSet{},
			applied: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs := tt.rs
			got, result := c.CompileWithResult(context.Background(), "view-1", &rs, testForm(), 1, base)
			if tt.applied {
				assert.Equal(t, CompileApplied, result)
				require.NotNil(t, got.FieldFilters)
			} else {
				assert.Equal(t, CompileBelowThreshold, result)
				assert.Equal(t, base, got)
			}
		})
	}
}

func TestCompileDropsEmptyValuesKeepsZero(t *testing.T) {
	c := newTestCompiler()
	rs := NewRuleSet(ModeAll,
		NewRule("1", OperatorIs, ""),
		NewRule("3", OperatorIs, "0"),
		Rule{Field: "7", Operator: OperatorIs},
		NewRule("7", OperatorIs, "high"),
	)

	got := c.Compile(context.Background(), "view-1", &rs, testForm(), 1, Criteria{})

	require.NotNil(t, got.FieldFilters)
	assert.Equal(t, []ResolvedRule{
		{Field: "3", Operator: OperatorIs, Value: "0"},
		{Field: "7", Operator: OperatorIs, Value: "high"},
	}, got.FieldFilters.List)
}

func TestCompileMergesWithBaseCriteria(t *testing.T) {
	c := newTestCompiler()
	base := Criteria{
		FieldFilters: &FieldFilters{
			Mode: ModeAny,
			List: []ResolvedRule{{Field: "9", Operator: OperatorContains, Value: "search"}},
		},
		Paging: &Paging{PageSize: 25},
	}

	t.Run("rule set mode overrides", func(t *testing.T) {
		rs := NewRuleSet(ModeAll, NewRule("1", OperatorIs, "a"))
		got := c.Compile(context.Background(), "view-1", &rs, testForm(), 1, base)

		assert.Equal(t, ModeAll, got.FieldFilters.Mode)
		assert.Len(t, got.FieldFilters.List, 2)
		assert.Equal(t, "9", got.FieldFilters.List[0].Field)
		assert.Equal(t, "1", got.FieldFilters.List[1].Field)
		assert.Equal(t, 25, got.Paging.PageSize)
	})

	t.Run("base mode kept without rule set mode", func(t *testing.T) {
		rs := RuleSet{Rules: []Rule{NewRule("1", OperatorIs, "a"), NewRule("3", OperatorIs, "b")}}
		got := c.Compile(context.Background(), "view-1", &rs, testForm(), 1, base)

		assert.Equal(t, ModeAny, got.FieldFilters.Mode)
		assert.Len(t, got.FieldFilters.List, 3)
	})

	t.Run("base is not mutated", func(t *testing.T) {
		assert.Len(t, base.FieldFilters.List, 1)
		assert.Equal(t, ModeAny, base.FieldFilters.Mode)
	})
}

func TestCompileResolvesDates(t *testing.T) {
	c := newTestCompiler()
	rs := NewRuleSet(ModeAll, NewRule("5", OperatorGreater, "today"), NewRule("5", OperatorLess, "not-a-date"))

	got := c.Compile(context.Background(), "view-1", &rs, testForm(), 1, Criteria{})

	require.Len(t, got.FieldFilters.List, 2)
	assert.Equal(t, "2024-03-15 00:00:00", got.FieldFilters.List[0].Value)
	assert.Equal(t, "not-a-date", got.FieldFilters.List[1].Value)
}

func TestCompileMissingContextFailsOpen(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	c := NewCompiler(newTestResolver(logger.NopLogger()), logger.FromZap(zap.New(core)))
	rs := NewRuleSet(ModeAll, NewRule("1", OperatorIs, "a"))
	base := Criteria{Status: "active"}

	got, result := c.CompileWithResult(context.Background(), "", &rs, testForm(), 1, base)
	assert.Equal(t, base, got)
	assert.Equal(t, CompileMissingContext, result)

	got, result = c.CompileWithResult(context.Background(), "view-1", &rs, nil, 1, base)
	assert.Equal(t, base, got)
	assert.Equal(t, CompileMissingContext, result)

	assert.Equal(t, 2, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestCompileAbsentRuleSet(t *testing.T) {
	c := newTestCompiler()
	base := Criteria{Status: "active"}

	got, result := c.CompileWithResult(context.Background(), "view-1", nil, testForm(), 1, base)
	assert.Equal(t, base, got)
	assert.Equal(t, CompileNoRules, result)
}
