package assessment

import (
	"time"

	"gorm.io/datatypes"
)

type Result struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	AccountID uint           `json:"account_id" gorm:"not null;index"`
	Answers   datatypes.JSON `json:"answers"`
	Transport float64        `json:"transport"`
	Energy    float64        `json:"energy"`
	Food      float64        `json:"food"`
	Total     float64        `json:"total"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Result) TableName() string {
	return "assessment_results"
}

func (r *Result) Breakdown() Breakdown {
	return Breakdown{Transport: r.Transport, Energy: r.Energy, Food: r.Food, Total: r.Total}
}
