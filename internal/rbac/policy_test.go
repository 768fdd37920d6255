package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"school-admin/internal/model"
)

func TestEngineDashboardRules(t *testing.T) {
	engine := NewDefaultEngine(nil)
	teacher := PermissionsFor(model.RoleTeacher, "")
	admin := PermissionsFor(model.RoleAdmin, "")

	t.Run("listed page requires its permission", func(t *testing.T) {
		assert.False(t, engine.Evaluate("/dashboard/users", "GET", teacher))
		assert.True(t, engine.Evaluate("/dashboard/users", "GET", admin))
	})

	t.Run("unlisted page is allowed", func(t *testing.T) {
		assert.True(t, engine.Evaluate("/dashboard", "GET", teacher))
		assert.True(t, engine.Evaluate("/dashboard/profile", "GET", teacher))
	})

	t.Run("match is exact, not prefix", func(t *testing.T) {
		// Only /dashboard/users itself is restricted.
		assert.True(t, engine.Evaluate("/dashboard/users/export", "GET", teacher))
	})
}

func TestEngineAPIRules(t *testing.T) {
	engine := NewDefaultEngine(nil)
	teacher := PermissionsFor(model.RoleTeacher, "")
	homeroom := PermissionsFor(model.RoleTeacher, model.TeacherRoleHomeroom)
	admin := PermissionsFor(model.RoleAdmin, "")

	t.Run("academic years closed to non-admin for every method", func(t *testing.T) {
		for _, method := range []string{"GET", "POST", "PUT", "DELETE"} {
			assert.False(t, engine.Evaluate("/api/v1/academic-years", method, teacher), method)
			assert.True(t, engine.Evaluate("/api/v1/academic-years", method, admin), method)
		}
	})

	t.Run("read and write split per method", func(t *testing.T) {
		assert.True(t, engine.Evaluate("/api/v1/students", "GET", teacher))
		assert.False(t, engine.Evaluate("/api/v1/students", "POST", teacher))
		assert.True(t, engine.Evaluate("/api/v1/students", "POST", homeroom))
	})

	t.Run("base path covers subresources", func(t *testing.T) {
		assert.True(t, engine.Evaluate("/api/v1/students/123", "GET", teacher))
		assert.False(t, engine.Evaluate("/api/v1/students/123", "DELETE", teacher))
	})

	t.Run("sibling prefix does not match", func(t *testing.T) {
		// /api/v1/studentsextra shares a string prefix with the students
		// base but belongs to no rule.
		assert.True(t, engine.Evaluate("/api/v1/studentsextra", "DELETE", teacher))
	})

	t.Run("unlisted method on a ruled base is allowed", func(t *testing.T) {
		assert.True(t, engine.Evaluate("/api/v1/religions", "GET", teacher))
		assert.False(t, engine.Evaluate("/api/v1/religions", "POST", teacher))
	})

	t.Run("unruled base is allowed", func(t *testing.T) {
		assert.True(t, engine.Evaluate("/api/v1/account/me", "GET", teacher))
	})

	t.Run("method is case-insensitive", func(t *testing.T) {
		assert.False(t, engine.Evaluate("/api/v1/users", "get", teacher))
		assert.True(t, engine.Evaluate("/api/v1/users", "get", admin))
	})
}

func TestEngineOutOfScopePathsAllowed(t *testing.T) {
	engine := NewDefaultEngine(nil)

	assert.True(t, engine.Evaluate("/health", "GET", NewPermissionSet()))
	assert.True(t, engine.Evaluate("/metrics", "GET", NewPermissionSet()))
}

func TestEngineRecorderSeesEveryDecision(t *testing.T) {
	type decision struct {
		path    string
		method  string
		allowed bool
	}
	var seen []decision

	engine := NewDefaultEngine(func(path string, method string, allowed bool) {
		seen = append(seen, decision{path, method, allowed})
	})
	teacher := PermissionsFor(model.RoleTeacher, "")

	engine.Evaluate("/api/v1/students", "GET", teacher)
	engine.Evaluate("/api/v1/users", "GET", teacher)

	assert.Equal(t, []decision{
		{"/api/v1/students", "GET", true},
		{"/api/v1/users", "GET", false},
	}, seen)
}

func TestEnginePanickingRecorderDoesNotChangeDecision(t *testing.T) {
	engine := NewDefaultEngine(func(string, string, bool) {
		panic("recorder exploded")
	})
	admin := PermissionsFor(model.RoleAdmin, "")

	assert.NotPanics(t, func() {
		assert.True(t, engine.Evaluate("/api/v1/users", "GET", admin))
	})
}
