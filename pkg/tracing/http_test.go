package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsTraced(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/api/v1/views/42/criteria", true},
		{"/health", false},
		{"/metrics", false},
		{"/swagger/index.html", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, isTraced(req))
		})
	}
}
