// Package server is the HTTP shell around the clip pipeline. It owns no
// pipeline logic: it decodes requests, runs the injected pipeline, and maps
// fault kinds onto HTTP statuses and the wire error envelope.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"clipforge/internal/fault"
	"clipforge/internal/types"
)

// Runner is the pipeline surface the shell depends on.
type Runner interface {
	Run(ctx context.Context, req types.ClipRequest) (types.Artifact, error)
}

type Server struct {
	pipe Runner
	log  *slog.Logger
}

func New(pipe Runner, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{pipe: pipe, log: log}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.POST("/api/clip", s.handleClip)
	return r
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *Server) handleClip(c *gin.Context) {
	var req types.ClipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errorBody{
			Kind:    string(fault.KindValidation),
			Message: "malformed request body: " + err.Error(),
		}})
		return
	}

	art, err := s.pipe.Run(c.Request.Context(), req)
	if err != nil {
		kind := fault.KindOf(err)
		s.log.Error("clip request failed",
			"kind", string(kind), "mode", req.Mode, "error", err)
		c.JSON(statusFor(kind), gin.H{"error": errorBody{
			Kind:    string(kind),
			Message: fault.Message(err),
		}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"artifactBase64": art.Base64()})
}

func statusFor(kind fault.Kind) int {
	switch kind {
	case fault.KindValidation:
		return http.StatusBadRequest
	case fault.KindTimeout:
		return http.StatusGatewayTimeout
	case fault.KindExtraction, fault.KindTranscription, fault.KindAlignment, fault.KindComposition:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
