package services

import (
	"time"

	"backend/models"

	"gorm.io/gorm"
)

const alertTimeLayout = "2006-01-02 15:04:05"

// AlertLogService appends and lists alert records. Rows are never updated.
type AlertLogService struct {
	db *gorm.DB
}

func NewAlertLogService(db *gorm.DB) *AlertLogService {
	return &AlertLogService{db: db}
}

func (s *AlertLogService) Append(username, alertType string, ts time.Time, imagePath string) (uint, error) {
	a := &models.Alert{
		Username:  username,
		AlertType: alertType,
		Time:      ts.Format(alertTimeLayout),
		ImagePath: imagePath,
	}
	if err := s.db.Create(a).Error; err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (s *AlertLogService) ListByUser(username string, limit int) ([]models.Alert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var alerts []models.Alert
	err := s.db.Where("username = ?", username).
		Order("id DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}
