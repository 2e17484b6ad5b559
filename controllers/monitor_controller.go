package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type MonitorController struct {
	Pipeline *services.PipelineService
}

func NewMonitorController(pipeline *services.PipelineService) *MonitorController {
	return &MonitorController{Pipeline: pipeline}
}

type StartMonitorInput struct {
	Source     string  `json:"source" binding:"required"` // MJPEG URL or uploaded file path
	Confidence float64 `json:"confidence"`
}

func (mc *MonitorController) Start(c *gin.Context) {
	username := c.MustGet("username").(string)

	var input StartMonitorInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Confidence == 0 {
		input.Confidence = 0.5
	}

	info, err := mc.Pipeline.StartSession(username, input.Source, input.Confidence)
	switch {
	case errors.Is(err, services.ErrInvalidThreshold):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrSourceUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusCreated, gin.H{"session": info})
	}
}

// Upload stores a video file for later playback and returns the path to use
// as a monitoring source.
func (mc *MonitorController) Upload(c *gin.Context) {
	file, err := c.FormFile("video")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "video file required"})
		return
	}

	dst := filepath.Join(os.TempDir(), fmt.Sprintf("upload_%d_%s", time.Now().Unix(), filepath.Base(file.Filename)))
	if err := c.SaveUploadedFile(file, dst); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"path": dst})
}

func (mc *MonitorController) Stop(c *gin.Context) {
	id := c.Param("id")
	if err := mc.Pipeline.StopSession(id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "session stopping"})
}

func (mc *MonitorController) Status(c *gin.Context) {
	id := c.Param("id")
	info, err := mc.Pipeline.SessionStatus(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": info})
}
