package entity

import "time"

// UserProgress xp, level and streak of a user
type UserProgress struct {
	UserID           string     `json:"user_id" gorm:"primaryKey;size:36"`
	XP               int        `json:"xp" gorm:"default:0"`
	Level            int        `json:"level" gorm:"default:1"`
	CurrentStreak    int        `json:"current_streak" gorm:"default:0"`
	LongestStreak    int        `json:"longest_streak" gorm:"default:0"`
	LastActivityDate *time.Time `json:"last_activity_date"`
	LastCheckInDate  *time.Time `json:"last_check_in_date"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// Achievement metrics
const (
	MetricOrdersPaid        = "orders_paid"
	MetricProjectsCompleted = "projects_completed"
	MetricStreakDays        = "streak_days"
	MetricFeedbackGiven     = "feedback_given"
	MetricXP                = "xp"
)

// Achievement definition
type Achievement struct {
	ID          string `json:"id" gorm:"primaryKey;size:36"`
	Code        string `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Title       string `json:"title" gorm:"size:255;not null"`
	Description string `json:"description" gorm:"type:text"`
	Icon        string `json:"icon" gorm:"size:64"`
	Metric      string `json:"metric" gorm:"size:32;not null"`
	Threshold   int    `json:"threshold" gorm:"not null"`
	XPReward    int    `json:"xp_reward" gorm:"default:0"`
	IsActive    bool   `json:"is_active" gorm:"not null"`
}

func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement awarded achievement
type UserAchievement struct {
	ID            string    `json:"id" gorm:"primaryKey;size:36"`
	UserID        string    `json:"user_id" gorm:"size:36;not null;uniqueIndex:idx_user_achievement"`
	AchievementID string    `json:"achievement_id" gorm:"size:36;not null;uniqueIndex:idx_user_achievement"`
	AwardedAt     time.Time `json:"awarded_at"`

	Achievement *Achievement `json:"achievement,omitempty" gorm:"foreignKey:AchievementID"`
}

func (UserAchievement) TableName() string {
	return "user_achievements"
}
