package httpapi

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"smartscan/internal/attendance"
)

func (s *Server) listStudents(c *gin.Context) {
	students, err := s.Attendance.Students(c.Request.Context())
	if err != nil {
		log.Printf("list students: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"students": students})
}

func (s *Server) listAttendance(c *gin.Context) {
	criteria, err := attendance.ParseCriteria(c.Query("date"), c.Query("search"), c.Query("type"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	entries, err := s.Attendance.Log(c.Request.Context(), criteria)
	if err != nil {
		log.Printf("list attendance: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"attendance": entries})
}
