package viewfilter

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/internal/rules"
	pkgerrors "viewfilter/pkg/errors"
)

func setupRouter(t *testing.T) (*gin.Engine, *fixture) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := newFixture(t)
	router := gin.New()
	NewHandler(f.svc, logger.NopLogger()).RegisterRoutes(router)
	return router, f
}

func doRequest(router *gin.Engine, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlerGetEditorPayload(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/views/view-1/filters", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var payload EditorPayload
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &payload))
	assert.Equal(t, rules.DefaultEditorState(), payload.Initial)
	assert.NotEmpty(t, payload.Catalog)
	assert.Equal(t, IdentityHelpText, payload.Help)
}

func TestHandlerGetEditorPayloadUnknownView(t *testing.T) {
	router, _ := setupRouter(t)

	w := doRequest(router, http.MethodGet, "/api/v1/views/missing/filters", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp pkgerrors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, pkgerrors.ErrNotFound.Code, resp.ErrorCode)
}

func TestHandlerSaveFilters(t *testing.T) {
	router, f := setupRouter(t)

	body := `{"mode":"any","filters":[{"field":3,"operator":">","value":"10"},{"field":"created_by","operator":"is","value":"created_by"}]}`
	w := doRequest(router, http.MethodPut, "/api/v1/views/view-1/filters", body, map[string]string{constants.UserIDHeader: "5"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp SaveResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "view-1", resp.ViewID)
	assert.Equal(t, rules.ModeAny, resp.Filters.Mode)
	require.Len(t, resp.Filters.Filters, 2)
	assert.Equal(t, rules.FieldRef("3"), resp.Filters.Filters[0].Field)

	loaded, err := f.store.Load(context.Background(), "view-1")
	require.NoError(t, err)
	assert.Equal(t, rules.NewRuleSet(rules.ModeAny,
		rules.NewRule("3", rules.OperatorGreater, "10"),
		rules.NewRule(rules.IdentityField, rules.OperatorIs, rules.IdentityToken),
	), *loaded)
	assert.Equal(t, []string{"view-1:5"}, f.notifier.events)
}

func TestHandlerSaveFiltersRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		headers map[string]string
	}{
		{"unknown field", `{"mode":"all","filters":[],"extra":true}`, nil},
		{"unknown rule field", `{"mode":"all","filters":[{"field":"1","operator":"is","value":"a","weight":1}]}`, nil},
		{"malformed json", `{"mode":`, nil},
		{"empty body", ``, nil},
		{"not filterable", `{"mode":"all","filters":[{"field":"99","operator":"is","value":"a"}]}`, nil},
		{"bad user header", `{"mode":"all","filters":[]}`, map[string]string{constants.UserIDHeader: "abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, f := setupRouter(t)
			w := doRequest(router, http.MethodPut, "/api/v1/views/view-1/filters", tt.body, tt.headers)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			loaded, err := f.store.Load(context.Background(), "view-1")
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})
	}
}

func TestHandlerCompileCriteria(t *testing.T) {
	router, f := setupRouter(t)
	require.NoError(t, f.store.Save(context.Background(), "view-1", rules.NewRuleSet(rules.ModeAll,
		rules.NewRule(rules.IdentityField, rules.OperatorIs, rules.IdentityToken),
	)))

	body := `{"base":{"status":"active","paging":{"offset":0,"page_size":25}}}`
	w := doRequest(router, http.MethodPost, "/api/v1/views/view-1/criteria", body, map[string]string{constants.UserIDHeader: "42"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp CriteriaResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, rules.CompileApplied, resp.Result)
	assert.Equal(t, "active", resp.Criteria.Status)
	require.NotNil(t, resp.Criteria.Paging)
	assert.Equal(t, 25, resp.Criteria.Paging.PageSize)
	require.NotNil(t, resp.Criteria.FieldFilters)
	require.Len(t, resp.Criteria.FieldFilters.List, 1)
	assert.EqualValues(t, 42, resp.Criteria.FieldFilters.List[0].Value)
}

func TestHandlerCompileCriteriaAnonymousEmptyBody(t *testing.T) {
	router, f := setupRouter(t)
	require.NoError(t, f.store.Save(context.Background(), "view-1", rules.NewRuleSet(rules.ModeAll,
		rules.NewRule(rules.IdentityField, rules.OperatorIs, rules.IdentityToken),
	)))

	w := doRequest(router, http.MethodPost, "/api/v1/views/view-1/criteria", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, strings.Contains(w.Body.String(), `"value":0`), w.Body.String())
}

func TestHandlerGetAuditLogs(t *testing.T) {
	router, _ := setupRouter(t)

	body := `{"mode":"all","filters":[{"field":"1","operator":"is","value":"Alice"}]}`
	w := doRequest(router, http.MethodPut, "/api/v1/views/view-1/filters", body, map[string]string{constants.UserIDHeader: "3"})
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/views/view-1/audit?limit=5", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var logs []AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &logs))
	require.Len(t, logs, 1)
	assert.Equal(t, "3", logs[0].ChangedBy)
	assert.Equal(t, "save", logs[0].Action)
}
