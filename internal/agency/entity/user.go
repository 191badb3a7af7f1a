package entity

import "time"

// User account
type User struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Email        string    `json:"email" gorm:"size:255;not null;uniqueIndex"`
	Name         string    `json:"name" gorm:"size:128"`
	PasswordHash string    `json:"-" gorm:"size:255"`
	Role         string    `json:"role" gorm:"size:16;not null;default:customer"`
	Locale       string    `json:"locale" gorm:"size:8;default:ru"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Roles
const (
	RoleAdmin      = "admin"
	RoleManager    = "manager"
	RoleSpecialist = "specialist"
	RoleCustomer   = "customer"
)

// IsStaff reports whether role belongs to the delivery team.
func IsStaff(role string) bool {
	return role == RoleAdmin || role == RoleManager || role == RoleSpecialist
}

// Media uploaded file
type Media struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	ObjectKey  string    `json:"object_key" gorm:"size:512;not null"`
	FileName   string    `json:"file_name" gorm:"size:255;not null"`
	MimeType   string    `json:"mime_type" gorm:"size:128"`
	FileSize   int64     `json:"file_size"`
	Alt        string    `json:"alt" gorm:"size:255"`
	UploadedBy string    `json:"uploaded_by" gorm:"size:36"`
	CreatedAt  time.Time `json:"created_at"`
	URL        string    `json:"url,omitempty" gorm:"-"`
}

func (Media) TableName() string {
	return "media"
}
