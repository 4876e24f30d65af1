package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/adaptly/internal/analytics"
	"github.com/abhisek/adaptly/internal/engine"
)

// Replay headers on SubmitAndNext responses.
const (
	HeaderReplay = "Idempotent-Replay"
	HeaderSource = "X-Response-Source"
)

func (s *Server) startSession(c *gin.Context) {
	var req engine.StartRequest
	if !s.bind(c, &req) {
		return
	}
	resp, err := s.engine.StartSession(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type pairBody struct {
	StudentID    string `json:"studentId"`
	MicroskillID string `json:"microSkillId"`
}

func (s *Server) nextQuestion(c *gin.Context) {
	var body pairBody
	if !s.bind(c, &body) {
		return
	}
	resp, err := s.engine.NextQuestion(c.Request.Context(), engine.NextRequest{
		SessionID:    c.Param("id"),
		StudentID:    body.StudentID,
		MicroskillID: body.MicroskillID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) submit(c *gin.Context) {
	var req engine.SubmitRequest
	if !s.bind(c, &req) {
		return
	}
	req.SessionID = c.Param("id")
	res, err := s.engine.SubmitAndNext(c.Request.Context(), req)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.Header(HeaderSource, res.Source)
	if res.Replay() {
		c.Header(HeaderReplay, "true")
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", res.Payload)
}

func (s *Server) scoreBreakdown(c *gin.Context) {
	var q analytics.Query
	if !s.bind(c, &q) {
		return
	}
	rep, err := s.engine.ScoreBreakdown(c.Request.Context(), q)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) mergeGuest(c *gin.Context) {
	var body struct {
		StudentID string `json:"studentId"`
	}
	if !s.bind(c, &body) {
		return
	}
	res, err := s.engine.MergeGuest(c.Request.Context(), c.Param("guestId"), body.StudentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		if err := s.health.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
