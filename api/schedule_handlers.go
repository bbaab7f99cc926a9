package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/VictorChenLi/raspberry-pi-status/schedule"
)

type createScheduleRequest struct {
	Time    string   `json:"time"`
	Days    []string `json:"days"`
	Enabled *bool    `json:"enabled"`
}

type updateScheduleRequest struct {
	Enabled *bool `json:"enabled"`
}

// listSchedules returns every stored schedule.
func (s *Server) listSchedules(c *gin.Context) {
	schedules := s.store.List()
	if schedules == nil {
		schedules = []schedule.Schedule{}
	}
	c.JSON(http.StatusOK, gin.H{"schedules": schedules})
}

// createSchedule validates and stores a new schedule. The trigger is armed
// before the response when the schedule is enabled.
func (s *Server) createSchedule(c *gin.Context) {
	var req createScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	sch, err := s.store.Add(req.Time, req.Days, enabled)
	if err != nil {
		if errors.Is(err, schedule.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to add schedule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "schedule": sch})
}

// updateSchedule toggles a schedule's enabled flag.
func (s *Server) updateSchedule(c *gin.Context) {
	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Enabled == nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Request must include enabled"})
		return
	}

	sch, err := s.store.SetEnabled(c.Param("id"), *req.Enabled)
	if err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to update schedule"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "schedule": sch})
}

// deleteSchedule removes a schedule and stops its trigger.
func (s *Server) deleteSchedule(c *gin.Context) {
	if err := s.store.Remove(c.Param("id")); err != nil {
		if errors.Is(err, schedule.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Schedule not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to delete schedule"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
