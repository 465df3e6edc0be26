package auth

// Role 是用户在后台的角色。
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleMember
}

// Session 是当前登录用户的能力描述，显式注入到需要身份/角色判断的组件中。
type Session struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`

	MustChangePassword bool `json:"must_change_password,omitempty"`
}

func (s Session) IsAdmin() bool {
	return s.Role == RoleAdmin
}

// CanEditSlides 判断用户能否打开和保存幻灯片设计。
func (s Session) CanEditSlides() bool {
	return s.UserID != 0 && s.IsAdmin() && !s.MustChangePassword
}

// Anonymous 表示未登录。
func (s Session) Anonymous() bool {
	return s.UserID == 0
}
