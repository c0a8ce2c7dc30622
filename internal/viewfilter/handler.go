package viewfilter

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/internal/mergetag"
	"viewfilter/internal/rules"
	pkgerrors "viewfilter/pkg/errors"
)

type BaseHandler struct {
	Service Service
	Logger  logger.Logger
}

func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	h.Logger.ErrorwCtx(c.Request.Context(), "Request error", "error", err, "path", c.Request.URL.Path)

	status := pkgerrors.ToHTTPStatus(err)
	response := pkgerrors.ToErrorResponse(err)

	c.JSON(status, response)
}

type Handler struct {
	BaseHandler
}

func NewHandler(service Service, log logger.Logger) *Handler {
	return &Handler{
		BaseHandler: BaseHandler{
			Service: service,
			Logger:  log,
		},
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		views := v1.Group("/views/:id")
		{
			views.GET("/filters", h.GetEditorPayload)
			views.PUT("/filters", h.SaveFilters)
			views.POST("/criteria", h.CompileCriteria)
			views.GET("/audit", h.GetAuditLogs)
		}
	}
}

// currentUser reads the user id set by the upstream proxy. A missing header
// means an anonymous visitor.
func currentUser(c *gin.Context) (rules.UserID, error) {
	raw := c.GetHeader(constants.UserIDHeader)
	if raw == "" {
		return rules.AnonymousUser, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0, pkgerrors.ErrValidation.
			WithDetail("message", "invalid user id header").
			WithDetail("header", constants.UserIDHeader)
	}
	return rules.UserID(id), nil
}

// decodeStrict rejects unknown fields. An empty body leaves v untouched
// when allowEmpty is set.
func decodeStrict(c *gin.Context, v interface{}, allowEmpty bool) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}
	return nil
}

// GetEditorPayload godoc
// @Summary      Get the filter editor payload of a view
// @Description  Returns the field catalog, the current rules in editor shape and the help text
// @Tags         view-filters
// @Produce      json
// @Param        id         path    string  true   "View ID"
// @Param        X-User-ID  header  int     false  "Current user ID"
// @Success      200  {object}  EditorPayload
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /views/{id}/filters [get]
func (h *Handler) GetEditorPayload(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	payload, err := h.Service.EditorPayload(c.Request.Context(), c.Param("id"), user)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

// SaveFilters godoc
// @Summary      Replace the filters of a view
// @Description  Converts the edited rules to storage shape and replaces the stored rule set
// @Tags         view-filters
// @Accept       json
// @Produce      json
// @Param        id         path    string               true   "View ID"
// @Param        X-User-ID  header  int                  false  "Current user ID"
// @Param        filters    body    rules.EditorRuleSet  true   "Edited rules"
// @Success      200  {object}  SaveResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Failure      404  {object}  errors.ErrorResponse
// @Failure      503  {object}  errors.ErrorResponse
// @Router       /views/{id}/filters [put]
func (h *Handler) SaveFilters(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req rules.EditorRuleSet
	if err := decodeStrict(c, &req, false); err != nil {
		h.HandleError(c, err)
		return
	}

	viewID := c.Param("id")
	rs, err := h.Service.SaveEditor(c.Request.Context(), viewID, req, user)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, SaveResponse{
		ViewID:  viewID,
		Filters: rules.ToEditorShape(*rs),
	})
}

// CompileCriteria godoc
// @Summary      Compile search criteria for a view
// @Description  Appends the view's resolved rules to the base criteria. Failures return the base unchanged.
// @Tags         view-filters
// @Accept       json
// @Produce      json
// @Param        id         path    string           true   "View ID"
// @Param        X-User-ID  header  int              false  "Current user ID"
// @Param        request    body    CriteriaRequest  false  "Base criteria"
// @Success      200  {object}  CriteriaResponse
// @Failure      400  {object}  errors.ErrorResponse
// @Router       /views/{id}/criteria [post]
func (h *Handler) CompileCriteria(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	var req CriteriaRequest
	if err := decodeStrict(c, &req, true); err != nil {
		h.HandleError(c, err)
		return
	}

	viewID := c.Param("id")
	ctx := mergetag.WithQuery(c.Request.Context(), c.Request.URL.Query())
	criteria, result := h.Service.Criteria(ctx, viewID, req.Base, user)
	c.JSON(http.StatusOK, CriteriaResponse{
		ViewID:   viewID,
		Criteria: criteria,
		Result:   result,
	})
}

// GetAuditLogs godoc
// @Summary      Get the filter change history of a view
// @Tags         view-filters
// @Produce      json
// @Param        id     path   string  true   "View ID"
// @Param        limit  query  int     false  "Maximum number of entries"
// @Success      200  {array}   AuditLog
// @Failure      500  {object}  errors.ErrorResponse
// @Router       /views/{id}/audit [get]
func (h *Handler) GetAuditLogs(c *gin.Context) {
	limit := constants.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	logs, err := h.Service.AuditLogs(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, logs)
}
