package rbac

import (
	"log/slog"
	"strings"
)

// APIRule maps one API base path to per-method required permissions. A
// method absent from Methods is not restricted.
type APIRule struct {
	Base    string
	Methods map[string]Permission
}

// DecisionRecorder receives the outcome of every evaluation. Used for
// metrics; failures inside a recorder never reach the caller.
type DecisionRecorder func(path string, method string, allowed bool)

// Engine decides allow/deny for a (path, method, permission set) triple.
//
// The model is a whitelist of restrictions, not a whitelist of
// allowances: a path/method with no registered rule is allowed, and a
// registered rule denies only when its required permission is missing.
// Unlisted dashboard pages are assumed non-sensitive; the request gate is
// what keeps unauthenticated traffic out in the first place.
type Engine struct {
	dashboardPrefix string
	apiPrefix       string
	dashboardRules  map[string]Permission
	apiRules        []APIRule
	recorder        DecisionRecorder
}

func NewEngine(dashboardPrefix string, apiPrefix string, dashboardRules map[string]Permission, apiRules []APIRule, recorder DecisionRecorder) *Engine {
	return &Engine{
		dashboardPrefix: dashboardPrefix,
		apiPrefix:       apiPrefix,
		dashboardRules:  dashboardRules,
		apiRules:        apiRules,
		recorder:        recorder,
	}
}

// NewDefaultEngine builds the engine with the application's rule tables.
func NewDefaultEngine(recorder DecisionRecorder) *Engine {
	return NewEngine("/dashboard", "/api", DefaultDashboardRules(), DefaultAPIRules(), recorder)
}

// Evaluate returns whether perms authorize method on path. The decision
// is also emitted to the audit log and recorder, best-effort.
func (e *Engine) Evaluate(path string, method string, perms PermissionSet) bool {
	allowed := e.decide(path, strings.ToUpper(method), perms)
	e.emit(path, method, allowed)
	return allowed
}

func (e *Engine) decide(path string, method string, perms PermissionSet) bool {
	if strings.HasPrefix(path, e.dashboardPrefix) {
		required, ok := e.dashboardRules[path]
		if !ok {
			return true
		}
		return perms.Has(required)
	}

	if strings.HasPrefix(path, e.apiPrefix) {
		for _, rule := range e.apiRules {
			if path != rule.Base && !strings.HasPrefix(path, rule.Base+"/") {
				continue
			}
			required, ok := rule.Methods[method]
			if !ok {
				return true
			}
			return perms.Has(required)
		}
		return true
	}

	// The gate only invokes the engine on protected prefixes; anything
	// else is out of policy scope.
	return true
}

func (e *Engine) emit(path string, method string, allowed bool) {
	defer func() {
		// Audit emission must never fail the decision.
		_ = recover()
	}()

	outcome := "allow"
	if !allowed {
		outcome = "deny"
	}
	slog.Debug("policy decision", "path", path, "method", method, "outcome", outcome)

	if e.recorder != nil {
		e.recorder(path, method, allowed)
	}
}

func DefaultDashboardRules() map[string]Permission {
	return map[string]Permission{
		"/dashboard/academic-years": PermAcademicYearManage,
		"/dashboard/rombels":        PermRombelRead,
		"/dashboard/students":       PermStudentRead,
		"/dashboard/teachers":       PermTeacherManage,
		"/dashboard/violations":     PermViolationRead,
		"/dashboard/achievements":   PermAchievementRead,
		"/dashboard/religions":      PermReligionManage,
		"/dashboard/users":          PermUserManage,
		"/dashboard/audit":          PermAuditRead,
	}
}

func DefaultAPIRules() []APIRule {
	return []APIRule{
		{
			Base: "/api/v1/academic-years",
			Methods: map[string]Permission{
				"GET":    PermAcademicYearManage,
				"POST":   PermAcademicYearManage,
				"PUT":    PermAcademicYearManage,
				"DELETE": PermAcademicYearManage,
			},
		},
		{
			Base: "/api/v1/rombels",
			Methods: map[string]Permission{
				"GET":    PermRombelRead,
				"POST":   PermRombelManage,
				"PUT":    PermRombelManage,
				"DELETE": PermRombelManage,
			},
		},
		{
			Base: "/api/v1/students",
			Methods: map[string]Permission{
				"GET":    PermStudentRead,
				"POST":   PermStudentManage,
				"PUT":    PermStudentManage,
				"DELETE": PermStudentManage,
			},
		},
		{
			Base: "/api/v1/teachers",
			Methods: map[string]Permission{
				"GET":    PermTeacherManage,
				"POST":   PermTeacherManage,
				"PUT":    PermTeacherManage,
				"DELETE": PermTeacherManage,
			},
		},
		{
			Base: "/api/v1/violations",
			Methods: map[string]Permission{
				"GET":    PermViolationRead,
				"POST":   PermViolationManage,
				"PUT":    PermViolationManage,
				"DELETE": PermViolationManage,
			},
		},
		{
			Base: "/api/v1/achievements",
			Methods: map[string]Permission{
				"GET":    PermAchievementRead,
				"POST":   PermAchievementManage,
				"PUT":    PermAchievementManage,
				"DELETE": PermAchievementManage,
			},
		},
		{
			Base: "/api/v1/religions",
			Methods: map[string]Permission{
				"POST":   PermReligionManage,
				"PUT":    PermReligionManage,
				"DELETE": PermReligionManage,
			},
		},
		{
			Base: "/api/v1/users",
			Methods: map[string]Permission{
				"GET":    PermUserManage,
				"POST":   PermUserManage,
				"PUT":    PermUserManage,
				"DELETE": PermUserManage,
			},
		},
		{
			Base: "/api/v1/audit",
			Methods: map[string]Permission{
				"GET": PermAuditRead,
			},
		},
	}
}
