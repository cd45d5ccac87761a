package hl7v2

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/URMC/urHL7/internal/platform/metrics"
)

// Handler provides HTTP endpoints over the parsing engine. Every endpoint
// takes a raw HL7 v2 message as the request body.
type Handler struct{}

// NewHandler creates a new HL7v2 handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers HL7v2 endpoints on the provided route group.
//
//	POST /hl7v2/parse                         - Parse to a JSON tree
//	POST /hl7v2/query?path=PID-3&all=true     - Resolve a path
//	POST /hl7v2/set?path=PID-5.1&value=Doe    - Set a value, return the message
//	POST /hl7v2/rewrite?delimiters=|*~\`      - Move to a new delimiter set
//	POST /hl7v2/compress                      - Trim trailing empty fields
//	POST /hl7v2/copy?retain=false             - Copy, optionally without data
//	POST /hl7v2/ack?code=AA                   - Build an acknowledgment
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7v2/parse", h.ParseMessage)
	g.POST("/hl7v2/query", h.Query)
	g.POST("/hl7v2/set", h.Set)
	g.POST("/hl7v2/rewrite", h.Rewrite)
	g.POST("/hl7v2/compress", h.Compress)
	g.POST("/hl7v2/copy", h.Copy)
	g.POST("/hl7v2/ack", h.Ack)
}

// ParseMessage handles POST /hl7v2/parse.
// It reads raw HL7v2 from the request body and returns parsed JSON.
func (h *Handler) ParseMessage(c echo.Context) error {
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return c.JSON(http.StatusOK, msg.View())
}

type matchJSON struct {
	Location string `json:"location"`
	Value    string `json:"value"`
	Raw      string `json:"raw"`
}

type queryResponse struct {
	Path    string      `json:"path"`
	Found   bool        `json:"found"`
	Matches []matchJSON `json:"matches"`
}

// Query handles POST /hl7v2/query. Without all=true only the first match
// is returned. A segment-only path reports whether the segment exists.
func (h *Handler) Query(c echo.Context) error {
	loc, err := ParseLocation(c.QueryParam("path"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	all, _ := strconv.ParseBool(c.QueryParam("all"))
	resp := queryResponse{Path: loc.String(), Matches: []matchJSON{}}

	if !loc.HasField() {
		metrics.Queries.WithLabelValues("segment").Inc()
		segs := msg.SegmentsAt(loc)
		if !all && len(segs) > 1 {
			segs = segs[:1]
		}
		for _, s := range segs {
			resp.Matches = append(resp.Matches, matchJSON{Location: loc.String(), Value: s.Name(), Raw: s.Marshal()})
		}
		resp.Found = len(segs) > 0
		return c.JSON(http.StatusOK, resp)
	}

	kind := "get"
	if all {
		kind = "get_all"
	}
	metrics.Queries.WithLabelValues(kind).Inc()

	for _, m := range msg.Find(loc) {
		resp.Matches = append(resp.Matches, matchJSON{
			Location: m.Location.FullyQualified(),
			Value:    m.Element.Data(),
			Raw:      m.Element.Marshal(),
		})
		if !all {
			break
		}
	}
	resp.Found = len(resp.Matches) > 0
	return c.JSON(http.StatusOK, resp)
}

// Set handles POST /hl7v2/set.
func (h *Handler) Set(c echo.Context) error {
	path := c.QueryParam("path")
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	metrics.Queries.WithLabelValues("set").Inc()
	if err := msg.Set(path, c.QueryParam("value")); err != nil {
		return badRequest(c, err.Error())
	}
	return writeMessage(c, msg)
}

// Rewrite handles POST /hl7v2/rewrite. header=false leaves MSH-2 as it
// was.
func (h *Handler) Rewrite(c echo.Context) error {
	d, err := ParseDelimiters(c.QueryParam("delimiters"))
	if err != nil {
		return badRequest(c, err.Error())
	}
	rewriteHeader := true
	if v := c.QueryParam("header"); v != "" {
		if rewriteHeader, err = strconv.ParseBool(v); err != nil {
			return badRequest(c, "header must be a boolean")
		}
	}
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if err := msg.ChangeDelimiters(d, rewriteHeader); err != nil {
		return badRequest(c, err.Error())
	}
	metrics.DelimiterRewrites.Inc()
	return writeMessage(c, msg)
}

// Compress handles POST /hl7v2/compress.
func (h *Handler) Compress(c echo.Context) error {
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	msg.Compress()
	return writeMessage(c, msg)
}

// Copy handles POST /hl7v2/copy.
func (h *Handler) Copy(c echo.Context) error {
	retain := true
	if v := c.QueryParam("retain"); v != "" {
		var err error
		if retain, err = strconv.ParseBool(v); err != nil {
			return badRequest(c, "retain must be a boolean")
		}
	}
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	return writeMessage(c, msg.Copy(retain))
}

// Ack handles POST /hl7v2/ack. code defaults to AA.
func (h *Handler) Ack(c echo.Context) error {
	code := AckAccept
	if v := c.QueryParam("code"); v != "" {
		parsed, err := ParseAckCode(v)
		if err != nil {
			return badRequest(c, err.Error())
		}
		code = parsed
	}
	msg, err := ReadMessage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	ack, err := GenerateACK(msg, code, uuid.NewString())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to build acknowledgment: " + err.Error(),
		})
	}
	return writeMessage(c, ack)
}

// ReadMessage parses the request body as a message and records parse
// metrics.
func ReadMessage(c echo.Context) (*Message, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, errBody("failed to read request body")
	}
	if len(body) == 0 {
		return nil, errBody("request body is empty")
	}
	start := time.Now()
	msg, err := Parse(body)
	metrics.ObserveParse(start, err)
	if err != nil {
		return nil, errBody("failed to parse HL7v2 message: " + err.Error())
	}
	return msg, nil
}

type errBody string

func (e errBody) Error() string { return string(e) }

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, map[string]string{"error": msg})
}

func writeMessage(c echo.Context, msg *Message) error {
	return c.Blob(http.StatusOK, "text/plain", msg.Bytes())
}
