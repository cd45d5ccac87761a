package rules

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/URMC/urHL7/internal/platform/hl7v2"
)

// Handler validates posted messages against a fixed rule set.
type Handler struct {
	rules Set
}

func NewHandler(rules Set) *Handler {
	return &Handler{rules: rules}
}

// RegisterRoutes registers POST /hl7v2/validate.
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7v2/validate", h.Validate)
}

type validateResponse struct {
	Passed   bool      `json:"passed"`
	Outcomes []Outcome `json:"outcomes"`
}

// Validate answers 200 with per-rule outcomes whether or not the message
// passes; 400 is reserved for unreadable input.
func (h *Handler) Validate(c echo.Context) error {
	msg, err := hl7v2.ReadMessage(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	res := h.rules.EvaluateAll(msg)
	return c.JSON(http.StatusOK, validateResponse{Passed: res.Passed(), Outcomes: res.Outcomes})
}
