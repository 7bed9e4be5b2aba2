package models

import (
	"gorm.io/gorm"

	"github.com/Ananth-NQI/narasumber-backend/internal/utils"
)

// User roles
const (
	RoleUser       = "user"
	RoleAdminGroup = "admin_group"
	RoleAdmin      = "admin"
)

// User is a registered WhatsApp user. Respondents ("narasumber") are users
// with IsNarasumber set, scoped to one group.
type User struct {
	gorm.Model

	Username       string `json:"username"`
	WhatsAppNumber string `json:"whatsapp_number" gorm:"column:whatsapp_number;uniqueIndex;not null"` // canonical digits, e.g. 6281234567890
	Role           string `json:"role" gorm:"default:user"`
	IsNarasumber   bool   `json:"is_narasumber" gorm:"default:false;index"`
	GroupID        string `json:"group_id" gorm:"index"` // WhatsApp group address, e.g. 1203630...@g.us
}

// BeforeCreate normalizes the phone number so lookups can use exact matches
func (u *User) BeforeCreate(tx *gorm.DB) error {
	u.WhatsAppNumber = utils.NormalizePhone(u.WhatsAppNumber)
	if u.Role == "" {
		u.Role = RoleUser
	}
	return nil
}

// DisplayName is what the respondent menu shows
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	return "+" + u.WhatsAppNumber
}

// HasGroup reports whether the user has been bound to a group yet
func (u *User) HasGroup() bool {
	return u.GroupID != ""
}
