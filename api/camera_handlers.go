package api

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/VictorChenLi/raspberry-pi-status/camera"
	"github.com/VictorChenLi/raspberry-pi-status/stream"
)

// getCameraInfo reports the capability detected at startup.
func (s *Server) getCameraInfo(c *gin.Context) {
	c.JSON(http.StatusOK, s.capability)
}

// takePhoto captures a full-resolution still.
func (s *Server) takePhoto(c *gin.Context) {
	img, err := s.photos.Capture(c.Request.Context())
	if err != nil {
		message := "Failed to capture photo. Make sure the camera is connected and enabled."
		if errors.Is(err, camera.ErrNoCamera) {
			message = "No camera available"
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"filename":  img.Filename,
		"url":       img.URL,
		"timestamp": img.Timestamp,
	})
}

// streamCamera serves the MJPEG stream. The loop runs until the client
// disconnects or the session is stopped explicitly.
func (s *Server) streamCamera(c *gin.Context) {
	if s.capability.Type == camera.TypeNone {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "No camera available"})
		return
	}

	session, already := s.streams.Open(c.ClientIP())
	if already {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Stream already running"})
		return
	}

	c.Header("Content-Type", stream.ContentType)
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	s.streams.Run(c.Request.Context(), session, c.Writer)
}

// startStream reports stream readiness without opening a session; the
// session is created when the browser connects to the stream URL.
func (s *Server) startStream(c *gin.Context) {
	if s.capability.Type == camera.TypeNone {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "No camera available"})
		return
	}
	message := "Stream started"
	if s.streams.Has(c.ClientIP()) {
		message = "Stream already running"
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"url":     "/api/camera/stream",
	})
}

// stopStream ends the caller's session. Stopping twice is a clean no-op.
func (s *Server) stopStream(c *gin.Context) {
	if s.streams.Close(c.ClientIP()) {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "Stream stopped"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "No stream running"})
}

// listImages returns captured stills, newest first.
func (s *Server) listImages(c *gin.Context) {
	images, err := s.photos.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list images"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"images": images})
}

// deleteImage removes one still and its history rows.
func (s *Server) deleteImage(c *gin.Context) {
	filename := c.Param("filename")
	if err := s.photos.Delete(filename); err != nil {
		if errors.Is(err, camera.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Image not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete image"})
		return
	}
	if s.db != nil {
		// History cleanup is best-effort
		if err := s.db.DeleteCapture(filename); err != nil {
			log.Printf("Failed to delete capture history for %s: %v", filename, err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// getCaptureHistory returns the SQLite capture log.
func (s *Server) getCaptureHistory(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusOK, gin.H{"captures": []struct{}{}})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	records, err := s.db.ListCaptures(limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load capture history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"captures": records})
}
