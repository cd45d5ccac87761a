package archive

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/URMC/urHL7/internal/platform/auth"
	"github.com/URMC/urHL7/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers the archive endpoints on api.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("/archive", auth.RequireRole(auth.ReadRoles...))
	read.GET("/messages", h.List)
	read.GET("/messages/:id", h.Get)
	read.GET("/messages/:id/query", h.Query)

	write := api.Group("/archive", auth.RequireRole(auth.WriteRoles...))
	write.POST("/messages", h.Create)
	write.DELETE("/messages/:id", h.Delete)
}

// Create stores the raw HL7 body.
func (h *Handler) Create(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read request body")
	}
	if len(body) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "request body is empty")
	}
	rec, err := h.svc.Store(c.Request().Context(), body)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	if c.QueryParam("format") == "raw" {
		return c.Blob(http.StatusOK, "text/plain", []byte(rec.Raw))
	}
	return c.JSON(http.StatusOK, rec)
}

// List returns archived messages, filtered by any recognised header
// parameters (control_id, message_type, ...).
func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := make(map[string]string)
	for k := range searchParams {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}

	var (
		items []*Record
		total int
		err   error
	)
	if len(params) > 0 {
		items, total, err = h.svc.Search(c.Request().Context(), params, pg.Limit, pg.Offset)
	} else {
		items, total, err = h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset).
		WithLinks(c.Request().URL.Path, c.QueryParams()))
}

type queryResponse struct {
	Path   string   `json:"path"`
	Values []string `json:"values"`
}

func (h *Handler) Query(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	path := c.QueryParam("path")
	values, err := h.svc.Query(c.Request().Context(), id, path)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, queryResponse{Path: path, Values: values})
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, ErrInvalid):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "archived message not found")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
