package auth

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

type UserRole string

const (
	RoleSupervisor UserRole = "supervisor"
	RoleManager    UserRole = "manager"
	RoleTechnician UserRole = "teknisi"
)

// ParseRole accepts the stored role names plus the English alias for
// technicians.
func ParseRole(s string) (UserRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(RoleSupervisor):
		return RoleSupervisor, true
	case string(RoleManager):
		return RoleManager, true
	case string(RoleTechnician), "technician":
		return RoleTechnician, true
	default:
		return "", false
	}
}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:120;not null"`
	Email        string    `json:"email" gorm:"size:190;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         UserRole  `json:"role" gorm:"type:varchar(20);not null;index"`
	Phone        string    `json:"phone,omitempty" gorm:"size:40"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// Caller is the authenticated identity an operation runs as.
type Caller struct {
	ID   int64
	Role UserRole
}

func (c Caller) Is(roles ...UserRole) bool {
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// CallerFromContext reads the identity stored by the JWT middleware.
// ok is false when the request is anonymous.
func CallerFromContext(c *gin.Context) (Caller, bool) {
	id := c.GetInt64("user_id")
	if id == 0 {
		return Caller{}, false
	}
	role, ok := ParseRole(c.GetString("role"))
	if !ok {
		return Caller{}, false
	}
	return Caller{ID: id, Role: role}, true
}
