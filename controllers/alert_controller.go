package controllers

import (
	"net/http"
	"strconv"

	"backend/services"

	"github.com/gin-gonic/gin"
)

type AlertController struct {
	Alerts *services.AlertLogService
}

func NewAlertController(alerts *services.AlertLogService) *AlertController {
	return &AlertController{Alerts: alerts}
}

// GET /alerts?limit=50
func (ac *AlertController) List(c *gin.Context) {
	username := c.MustGet("username").(string)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	alerts, err := ac.Alerts.ListByUser(username, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts})
}
