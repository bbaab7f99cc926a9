package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/VictorChenLi/raspberry-pi-status/camera"
)

// getSystemInfo returns host telemetry. Individual probe failures degrade
// their field to "N/A" rather than failing the request.
func (s *Server) getSystemInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.info.Collect(c.Request.Context()))
}

// getHealth provides service health for dashboards and deploy checks.
func (s *Server) getHealth(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if s.db != nil {
		if count, err := s.db.CountCaptures(); err != nil {
			health["status"] = "degraded"
			health["database"] = gin.H{"status": "failed", "error": err.Error()}
		} else {
			health["database"] = gin.H{"status": "connected", "captures": count}
		}
	}

	cameraStatus := gin.H{
		"type":      s.capability.Type,
		"available": s.capability.Available,
	}
	if s.capability.Type == camera.TypeNone {
		health["status"] = "degraded"
	}
	health["camera"] = cameraStatus

	health["streams"] = gin.H{"active": s.streams.ActiveCount()}
	health["schedules"] = gin.H{
		"total": len(s.store.List()),
		"armed": s.engine.ArmedCount(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)
	health["system"] = gin.H{
		"memory_mb":  memStats.Alloc / 1024 / 1024,
		"goroutines": runtime.NumGoroutine(),
		"go_version": runtime.Version(),
	}

	c.JSON(http.StatusOK, health)
}

// shutdownNow responds success first, then powers off after a short delay.
// A refused shutdown is logged only; the response is already gone.
func (s *Server) shutdownNow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "System is shutting down...",
	})
	s.power.DeferShutdown()
}

// rebootNow responds success first, then reboots after a short delay.
func (s *Server) rebootNow(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "System is rebooting...",
	})
	s.power.DeferReboot()
}
