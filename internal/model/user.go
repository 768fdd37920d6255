package model

import "time"

// Role is the top-level RBAC role assigned to every account.
type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RoleTeacher Role = "TEACHER"
	RoleStudent Role = "STUDENT"
	RoleParent  Role = "PARENT"
)

// TeacherRole refines RoleTeacher. Empty for every other role.
type TeacherRole string

const (
	TeacherRoleSubject   TeacherRole = "SUBJECT_TEACHER"
	TeacherRoleHomeroom  TeacherRole = "HOMEROOM"
	TeacherRoleCounselor TeacherRole = "COUNSELOR"
	TeacherRoleDuty      TeacherRole = "DUTY_TEACHER"
)

func ValidRole(r Role) bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	}
	return false
}

func ValidTeacherRole(r TeacherRole) bool {
	switch r {
	case TeacherRoleSubject, TeacherRoleHomeroom, TeacherRoleCounselor, TeacherRoleDuty:
		return true
	}
	return false
}

type User struct {
	ID                  string      `json:"id"`
	Username            string      `json:"username"`
	PasswordHash        string      `json:"-"`
	Role                Role        `json:"role"`
	TeacherRole         TeacherRole `json:"teacher_role,omitempty"`
	IsActive            bool        `json:"is_active"`
	MustChangePassword  bool        `json:"must_change_password"`
	FailedLoginAttempts int         `json:"-"`
	LockedUntil         *time.Time  `json:"-"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// AuthClaims is the validated payload of a signed token. It is produced
// only by the token codec after signature verification; nothing downstream
// ever sees an unverified payload.
type AuthClaims struct {
	UserID      string      `json:"sub"`
	Username    string      `json:"username"`
	Role        Role        `json:"role"`
	TeacherRole TeacherRole `json:"teacher_role,omitempty"`
	Type        string      `json:"typ"`
	TokenID     string      `json:"jti"`
}

type AuthUser struct {
	ID                 string      `json:"id"`
	Username           string      `json:"username"`
	Role               Role        `json:"role"`
	TeacherRole        TeacherRole `json:"teacher_role,omitempty"`
	MustChangePassword bool        `json:"must_change_password"`
}

type TokenPair struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	TokenType    string   `json:"token_type"`
	ExpiresIn    int64    `json:"expires_in"`
	User         AuthUser `json:"user"`
}
