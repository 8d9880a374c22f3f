// Package httpapi exposes the scan session, roster, attendance log and operator auth over HTTP.
package httpapi

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"smartscan/internal/attendance"
	"smartscan/internal/auth"
	"smartscan/internal/decoder"
	"smartscan/internal/httpmiddleware"
	"smartscan/internal/queue"
	"smartscan/internal/scansession"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Deps are the collaborators wired by cmd/api.
type Deps struct {
	Session    *scansession.Session
	Camera     *decoder.Live
	Feed       decoder.Decoder // optional: scans published by external scanners
	FeedQueue  queue.Queue     // where /v1/feed/scans publishes; consumed by Feed
	Attendance *attendance.Service
	Auth       auth.Authenticator
	Limiter    *httpmiddleware.TokenBucket
	Health     map[string]HealthCheck

	// MaxFrameBytes caps an uploaded camera frame; zero means DefaultMaxFrameBytes.
	MaxFrameBytes int64
}

// DefaultMaxFrameBytes bounds frame uploads when Deps.MaxFrameBytes is unset.
const DefaultMaxFrameBytes int64 = 4 << 20

// Server holds the handlers.
type Server struct {
	Deps
}

// New creates a server.
func New(d Deps) *Server {
	if d.MaxFrameBytes <= 0 {
		d.MaxFrameBytes = DefaultMaxFrameBytes
	}
	return &Server{Deps: d}
}

// Router builds the gin engine with middlewares and routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.CORS())
	r.Use(httpmiddleware.SecurityHeaders())
	if s.Limiter != nil {
		r.Use(s.Limiter.GinMiddleware(nil))
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", s.healthz)

	r.POST("/v1/auth/login", s.login)
	r.GET("/v1/me", s.me)

	v1 := r.Group("/v1", auth.RequireUser(s.Auth), s.rememberToken)
	v1.POST("/auth/logout", s.logout)

	v1.GET("/session", s.getSession)
	v1.POST("/session/start", s.startSession)
	v1.POST("/session/stop", s.stopSession)
	v1.POST("/session/frames", s.pushFrame)
	v1.POST("/session/scans", s.pushScan)
	v1.PUT("/session/mode", s.setMode)
	v1.POST("/session/submit", s.submit)
	v1.POST("/session/reset", s.reset)
	v1.POST("/feed/scans", s.publishScan)

	v1.GET("/students", s.listStudents)
	v1.GET("/attendance", s.listAttendance)
	return r
}

func (s *Server) healthz(c *gin.Context) {
	status := http.StatusOK
	body := gin.H{"status": "ok"}
	for name, check := range s.Health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
	}
	c.JSON(status, body)
}

// rememberToken hands the caller's token to the session so a running scanner keeps resolving
// students as the operator after the token that started it is refreshed.
func (s *Server) rememberToken(c *gin.Context) {
	if tok := auth.TokenFrom(c); tok != "" {
		s.Session.SetAccessToken(tok)
	}
	c.Next()
}
