package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Course online course created through the admin creator
type Course struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	Slug        string          `json:"slug" gorm:"size:160;not null;uniqueIndex"`
	Title       string          `json:"title" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Level       string          `json:"level" gorm:"size:16"`
	Price       decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null;default:0"`
	Currency    string          `json:"currency" gorm:"size:3;default:RUB"`
	Modules     datatypes.JSON  `json:"modules"`
	Extra       datatypes.JSON  `json:"extra"`
	Status      string          `json:"status" gorm:"size:16;default:draft"` // draft/published
	CreatedBy   string          `json:"created_by" gorm:"size:36"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`

	Landing *CourseLanding `json:"landing,omitempty" gorm:"foreignKey:CourseID"`
	Funnel  *CourseFunnel  `json:"funnel,omitempty" gorm:"foreignKey:CourseID"`
}

func (Course) TableName() string {
	return "courses"
}

type CourseLanding struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	CourseID  string         `json:"course_id" gorm:"size:36;not null;uniqueIndex"`
	Headline  string         `json:"headline" gorm:"size:255"`
	Content   datatypes.JSON `json:"content"`
	CreatedAt time.Time      `json:"created_at"`
}

func (CourseLanding) TableName() string {
	return "course_landings"
}

type CourseFunnel struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	CourseID  string         `json:"course_id" gorm:"size:36;not null;uniqueIndex"`
	Name      string         `json:"name" gorm:"size:255"`
	Steps     datatypes.JSON `json:"steps"`
	CreatedAt time.Time      `json:"created_at"`
}

func (CourseFunnel) TableName() string {
	return "course_funnels"
}
