package api

import (
	"log"

	"github.com/gin-gonic/gin"

	"github.com/VictorChenLi/raspberry-pi-status/camera"
	"github.com/VictorChenLi/raspberry-pi-status/config"
	"github.com/VictorChenLi/raspberry-pi-status/database"
	"github.com/VictorChenLi/raspberry-pi-status/schedule"
	"github.com/VictorChenLi/raspberry-pi-status/stream"
	"github.com/VictorChenLi/raspberry-pi-status/system"
)

type Server struct {
	config     config.Config
	capability camera.Capability
	photos     *camera.PhotoService
	streams    *stream.Manager
	store      *schedule.Store
	engine     *schedule.TriggerEngine
	info       *system.InfoProvider
	power      *system.PowerController
	db         database.Database
}

func NewServer(
	cfg config.Config,
	capability camera.Capability,
	photos *camera.PhotoService,
	streams *stream.Manager,
	store *schedule.Store,
	engine *schedule.TriggerEngine,
	info *system.InfoProvider,
	power *system.PowerController,
	db database.Database,
) *Server {
	return &Server{
		config:     cfg,
		capability: capability,
		photos:     photos,
		streams:    streams,
		store:      store,
		engine:     engine,
		info:       info,
		power:      power,
		db:         db,
	}
}

// Router builds the gin engine with all routes. Exposed separately from
// Start so handler tests can drive it with httptest.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	s.setupCORS(r)
	s.setupRoutes(r)
	return r
}

func (s *Server) Start() error {
	portAddr := ":" + s.config.ServerPort
	log.Printf("Starting API server on %s", portAddr)
	return s.Router().Run(portAddr)
}

func (s *Server) setupCORS(r *gin.Engine) {
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})
}

func (s *Server) setupRoutes(r *gin.Engine) {
	// Captured stills are served statically
	r.Static("/images", s.config.ImagesPath)

	api := r.Group("/api")
	{
		api.GET("/system-info", s.getSystemInfo)
		api.GET("/health", s.getHealth)

		api.GET("/camera/info", s.getCameraInfo)
		api.POST("/camera/photo", s.takePhoto)
		api.GET("/camera/stream", s.streamCamera)
		api.GET("/camera/stream/start", s.startStream)
		api.GET("/camera/stream/stop", s.stopStream)
		api.GET("/camera/images", s.listImages)
		api.DELETE("/camera/images/:filename", s.deleteImage)
		api.GET("/camera/history", s.getCaptureHistory)

		api.GET("/system/schedules", s.listSchedules)
		api.POST("/system/schedules", s.createSchedule)
		api.PATCH("/system/schedules/:id", s.updateSchedule)
		api.DELETE("/system/schedules/:id", s.deleteSchedule)
		api.POST("/system/shutdown", s.shutdownNow)
		api.POST("/system/reboot", s.rebootNow)
	}
}
