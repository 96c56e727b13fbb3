package models

import (
	"time"

	"gorm.io/gorm"
)

type InputEvent struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Timestamp time.Time      `gorm:"not null;index" json:"timestamp"`
	AppName   string         `gorm:"not null;index" json:"app_name"`
	Kind      string         `gorm:"not null;index" json:"kind"`       // "key_press", "pointer_press", "pointer_move", "focus_in", "focus_out"
	Detail    uint32         `gorm:"not null;default:0" json:"detail"` // keycode or button, 0 for other kinds
	X         float64        `gorm:"not null;default:0" json:"x"`
	Y         float64        `gorm:"not null;default:0" json:"y"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

type AppSummary struct {
	AppName      string  `json:"app_name"`
	EventCount   int64   `json:"event_count"`
	KeyPresses   int64   `json:"key_presses"`
	PointerPress int64   `json:"pointer_presses"`
	PointerMoves int64   `json:"pointer_moves"`
	FocusChanges int64   `json:"focus_changes"`
	Percentage   float64 `json:"percentage,omitempty"`
}

type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Type  string    `json:"type"` // "day", "week", "month"
}

type Report struct {
	Period      ReportPeriod `json:"period"`
	Apps        []AppSummary `json:"apps"`
	TotalEvents int64        `json:"total_events"`
	GeneratedAt time.Time    `json:"generated_at"`
}
