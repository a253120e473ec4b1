package model

import "time"

// Billing plans.
const (
	PlanFree = "free"
	PlanPro  = "pro"
)

// PlanHasShortLinks reports whether a plan allows claiming slugs shorter
// than five characters.
func PlanHasShortLinks(plan string) bool {
	return plan == PlanPro
}

// User is the account row backing dashboard authentication and plan gating.
type User struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	Email        string `gorm:"size:255;not null;uniqueIndex"`
	Username     string `gorm:"size:100;not null;uniqueIndex"`
	PasswordHash string `gorm:"type:text;not null"`
	Plan         string `gorm:"size:16;not null;default:free"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
