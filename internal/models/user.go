package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User roles within a school tenant.
const (
	RoleAgent    = "agent"
	RoleDirector = "director"
	RoleAdmin    = "admin"
)

// User is a platform account looked up by its canonical phone number
// (+226XXXXXXXX). Password is optional: agents authenticate with an OTP, a
// password only exists once set through the password-reset flow.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Phone     string    `gorm:"uniqueIndex;not null" json:"phone"`
	Name      string    `gorm:"not null" json:"name"`
	Role      string    `gorm:"type:varchar(20);not null;default:'agent'" json:"role"`
	SchoolID  string    `gorm:"type:varchar(64);index" json:"school_id,omitempty"`
	Password  string    `json:"-"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// IsAdmin reports whether the user has the platform admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

type RefreshToken struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID    uuid.UUID `gorm:"type:uuid;not null"`
	Token     string    `gorm:"uniqueIndex;not null"`
	ExpiresAt time.Time `gorm:"not null"`
	CreatedAt time.Time

	// Relations
	User User `gorm:"foreignKey:UserID"`
}

func (r *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
