package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/llm/openai"
	"github.com/projectcapital/capital/pkg/render"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

// generate passes a prompt straight to the configured model.
func (s *Server) generate(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Prompt == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
		return
	}

	reply, err := s.gen.Generate(c.Request.Context(), req.Prompt)
	if err != nil {
		detail := err.Error()
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			detail = apiErr.Body
		}
		s.logger.Warn("generate failed", "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream error", "detail": detail})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}

func (s *Server) createSession(c *gin.Context) {
	var size render.Size
	if err := c.ShouldBindJSON(&size); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "width and height are required"})
		return
	}

	id, o, err := s.sessions.create(size)
	if errors.Is(err, errTooManySessions) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("creating session failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create chart"})
		return
	}

	svg, _ := o.Session().SVG()
	c.JSON(http.StatusCreated, gin.H{"id": id, "svg": svg})
}

type queryRequest struct {
	Question string `json:"question"`
}

func (s *Server) query(c *gin.Context) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}

	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question is required"})
		return
	}

	res, err := o.Submit(c.Request.Context(), req.Question)
	switch {
	case errors.Is(err, dashboard.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": api.Sending})
	case err != nil:
		kind := dashboard.KindOf(err)
		c.JSON(statusFor(kind), gin.H{"error": err.Error(), "kind": kind})
	case res == nil:
		c.Status(http.StatusNoContent)
	default:
		c.JSON(http.StatusOK, res)
	}
}

// statusFor maps a submission failure to an HTTP status.
func statusFor(kind dashboard.ErrorKind) int {
	switch kind {
	case dashboard.TranslationError, dashboard.ClassificationMiss:
		return http.StatusUnprocessableEntity
	case dashboard.NetworkError, dashboard.DecodeError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// chart redraws the session at the requested size and returns the markup.
// Missing dimensions keep the current size.
func (s *Server) chart(c *gin.Context) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}
	session := o.Session()

	size, err := session.Size()
	if err != nil {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	}
	if w, ok := intQuery(c, "width"); ok {
		size.Width = w
	}
	if h, ok := intQuery(c, "height"); ok {
		size.Height = h
	}

	if err := session.Resize(size); err != nil {
		s.logger.Error("resizing chart failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not draw chart"})
		return
	}
	svg, err := session.SVG()
	if err != nil {
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}

type stateResponse struct {
	State api.InFlightState `json:"state"`
	Chart api.ChartKind     `json:"chart"`
	Error string            `json:"error,omitempty"`
	Kind  string            `json:"kind,omitempty"`
}

func (s *Server) state(c *gin.Context) {
	o, ok := s.lookup(c)
	if !ok {
		return
	}

	resp := stateResponse{State: o.State()}
	resp.Chart, _ = o.Session().Kind()
	if err := o.LastError(); err != nil {
		resp.Error = err.Error()
		resp.Kind = dashboard.KindOf(err).String()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.sessions.remove(c.Param("id")); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) lookup(c *gin.Context) (*dashboard.Orchestrator, bool) {
	o, err := s.sessions.get(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return nil, false
	}
	return o, true
}

func intQuery(c *gin.Context, key string) (int, bool) {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0, false
	}
	return n, true
}
