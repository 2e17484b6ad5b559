package models

// Alert rows are append-only; nothing updates or deletes them.
type Alert struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"index" json:"username"`
	AlertType string `gorm:"type:text" json:"alert_type"`
	Time      string `gorm:"size:19" json:"time"` // "2006-01-02 15:04:05"
	ImagePath string `json:"image_path"`
}
