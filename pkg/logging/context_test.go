package logging

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetLogFields(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		want []interface{}
	}{
		{
			name: "empty context",
			ctx:  context.Background(),
			want: []interface{}{},
		},
		{
			name: "view and request",
			ctx:  WithViewID(WithRequestID(context.Background(), "req-1"), "12"),
			want: []interface{}{"request_id", "req-1", "view_id", "12"},
		},
		{
			name: "all keys in stable order",
			ctx: WithServiceName(
				WithViewID(
					WithRequestID(
						WithTraceID(context.Background(), "t-1"), "req-2"), "7"), "viewfilter-service"),
			want: []interface{}{"trace_id", "t-1", "request_id", "req-2", "view_id", "7", "service_name", "viewfilter-service"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetLogFields(tt.ctx))
		})
	}
}

func TestStringKeysDoNotCollide(t *testing.T) {
	//nolint:staticcheck
	ctx := context.WithValue(context.Background(), "view_id", "foreign")
	assert.Empty(t, GetViewID(ctx))
}

func TestEarlyLog(t *testing.T) {
	var out, errOut bytes.Buffer
	code := -1
	l := &EarlyLog{out: &out, err: &errOut, exit: func(c int) { code = c }}

	l.Info("starting %s", "svc")
	l.Warn("careful")
	l.Fatal("boom: %d", 3)

	assert.Equal(t, "INFO: starting svc\n", out.String())
	assert.Equal(t, "WARN: careful\nFATAL: boom: 3\n", errOut.String())
	assert.Equal(t, 1, code)
}
