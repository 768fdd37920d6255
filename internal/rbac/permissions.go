package rbac

import "school-admin/internal/model"

// Permission is an opaque token drawn from a closed set. Permissions are
// resolved from (role, teacherRole) as a pure function, never stored.
type Permission string

const (
	PermAcademicYearManage Permission = "ACADEMIC_YEAR_MANAGE"
	PermRombelRead         Permission = "ROMBEL_READ"
	PermRombelManage       Permission = "ROMBEL_MANAGE"
	PermStudentRead        Permission = "STUDENT_READ"
	PermStudentManage      Permission = "STUDENT_MANAGE"
	PermTeacherManage      Permission = "TEACHER_MANAGE"
	PermViolationRead      Permission = "VIOLATION_READ"
	PermViolationManage    Permission = "VIOLATION_MANAGE"
	PermAchievementRead    Permission = "ACHIEVEMENT_READ"
	PermAchievementManage  Permission = "ACHIEVEMENT_MANAGE"
	PermReligionManage     Permission = "RELIGION_MANAGE"
	PermUserManage         Permission = "USER_MANAGE"
	PermAuditRead          Permission = "AUDIT_READ"
	PermDashboardView      Permission = "DASHBOARD_VIEW"
)

type PermissionSet map[Permission]struct{}

func (s PermissionSet) Has(p Permission) bool {
	_, ok := s[p]
	return ok
}

func NewPermissionSet(perms ...Permission) PermissionSet {
	set := make(PermissionSet, len(perms))
	for _, p := range perms {
		set[p] = struct{}{}
	}
	return set
}

var rolePermissions = map[model.Role][]Permission{
	model.RoleAdmin: {
		PermAcademicYearManage, PermRombelRead, PermRombelManage,
		PermStudentRead, PermStudentManage, PermTeacherManage,
		PermViolationRead, PermViolationManage,
		PermAchievementRead, PermAchievementManage,
		PermReligionManage, PermUserManage, PermAuditRead, PermDashboardView,
	},
	model.RoleTeacher: {
		PermDashboardView, PermRombelRead, PermStudentRead,
		PermViolationRead, PermAchievementRead,
	},
	model.RoleStudent: {
		PermDashboardView, PermViolationRead, PermAchievementRead,
	},
	model.RoleParent: {
		PermDashboardView, PermViolationRead, PermAchievementRead,
	},
}

// teacherRolePermissions adds subrole grants on top of the TEACHER base.
var teacherRolePermissions = map[model.TeacherRole][]Permission{
	model.TeacherRoleSubject:   {PermAchievementManage},
	model.TeacherRoleHomeroom:  {PermRombelManage, PermStudentManage, PermViolationManage, PermAchievementManage},
	model.TeacherRoleCounselor: {PermViolationManage},
	model.TeacherRoleDuty:      {PermViolationManage},
}

// PermissionsFor resolves the static permission set for a role. The
// teacher subrole only applies to RoleTeacher; it is ignored otherwise.
func PermissionsFor(role model.Role, teacherRole model.TeacherRole) PermissionSet {
	set := NewPermissionSet(rolePermissions[role]...)

	if role == model.RoleTeacher {
		for _, p := range teacherRolePermissions[teacherRole] {
			set[p] = struct{}{}
		}
	}

	return set
}
