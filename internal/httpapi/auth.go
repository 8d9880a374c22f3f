package httpapi

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartscan/internal/auth"
)

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := s.Auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		log.Printf("sign in %s: %v", req.Email, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "sign in failed"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) me(c *gin.Context) {
	token, ok := auth.BearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please log in"})
		return
	}
	user, err := s.Auth.CurrentUser(c.Request.Context(), token)
	if errors.Is(err, auth.ErrUnauthenticated) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Please log in"})
		return
	}
	if err != nil {
		log.Printf("current user: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

func (s *Server) logout(c *gin.Context) {
	if err := s.Auth.SignOut(c.Request.Context(), auth.TokenFrom(c)); err != nil {
		log.Printf("sign out: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	// nothing may keep scanning under a revoked token
	s.Session.Stop()
	s.Session.SetAccessToken("")
	c.Status(http.StatusNoContent)
}
