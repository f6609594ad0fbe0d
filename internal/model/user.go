package model

type UserRole string

const (
	Player UserRole = "player"
	Admin  UserRole = "admin"
)

// User 由认证服务维护，这里只读取排行榜展示名
// swagger:model User
type User struct {
	UUIDBase
	Username string   `gorm:"size:100;index" json:"username"`
	Email    string   `gorm:"size:255;index" json:"email"`
	Role     UserRole `gorm:"size:20;default:'player'" json:"role"`
}

func (User) TableName() string {
	return "users"
}

// DisplayName 用户名优先，其次邮箱
func (u *User) DisplayName() string {
	if u == nil {
		return "Player"
	}
	if u.Username != "" {
		return u.Username
	}
	if u.Email != "" {
		return u.Email
	}
	return "Player"
}
