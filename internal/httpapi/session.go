package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartscan/internal/decoder"
	"smartscan/internal/model"
	"smartscan/internal/queue"
	"smartscan/internal/scansession"
)

func (s *Server) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, s.Session.Snapshot())
}

func (s *Server) startSession(c *gin.Context) {
	var req struct {
		Source string `json:"source" binding:"omitempty,oneof=camera feed"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	var dec decoder.Decoder = s.Camera
	if req.Source == "feed" {
		if s.Feed == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan feed not configured"})
			return
		}
		dec = s.Feed
	}

	// the runner outlives this request but keeps its values (the operator token)
	ctx := context.WithoutCancel(c.Request.Context())
	err := s.Session.Start(ctx, dec)
	switch {
	case errors.Is(err, scansession.ErrAlreadyScanning):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, scansession.ErrCameraUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": scansession.MsgCameraBlocked})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, s.Session.Snapshot())
}

func (s *Server) stopSession(c *gin.Context) {
	s.Session.Stop()
	c.JSON(http.StatusOK, s.Session.Snapshot())
}

func (s *Server) pushFrame(c *gin.Context) {
	if c.Request.ContentLength > s.MaxFrameBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "frame too large"})
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.MaxFrameBytes)
	file, _, err := c.Request.FormFile("frame")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "frame too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "frame field required"})
		return
	}
	defer file.Close()

	accepted, err := s.Camera.FeedEncodedFrame(file)
	s.fed(c, accepted, err)
}

func (s *Server) pushScan(c *gin.Context) {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	accepted, err := s.Camera.FeedText(req.Payload)
	s.fed(c, accepted, err)
}

func (s *Server) fed(c *gin.Context, accepted bool, err error) {
	switch {
	case errors.Is(err, decoder.ErrNotStarted):
		c.JSON(http.StatusConflict, gin.H{"error": "scan session not started"})
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
	}
}

func (s *Server) setMode(c *gin.Context) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	mode, err := model.ParseMode(req.Mode)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.Session.SetMode(mode)
	c.JSON(http.StatusOK, s.Session.Snapshot())
}

func (s *Server) submit(c *gin.Context) {
	n, err := s.Session.SubmitBatch(c.Request.Context())
	switch {
	case errors.Is(err, scansession.ErrSubmitDisabled):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	case errors.Is(err, scansession.ErrSubmitInFlight):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case err != nil:
		log.Printf("submit failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": scansession.MsgSubmitFailed})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recorded": n, "session": s.Session.Snapshot()})
}

func (s *Server) reset(c *gin.Context) {
	s.Session.Reset()
	c.JSON(http.StatusOK, s.Session.Snapshot())
}

// publishScan accepts a payload from a handheld scanner and queues it for the feed decoder.
func (s *Server) publishScan(c *gin.Context) {
	if s.FeedQueue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "scan feed not configured"})
		return
	}
	var req struct {
		Payload string `json:"payload" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.FeedQueue.Publish(c.Request.Context(), queue.Message{Type: queue.TypeScan, Body: []byte(req.Payload), Source: c.ClientIP()}); err != nil {
		log.Printf("queue publish failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "queue unavailable"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"queued": true})
}
