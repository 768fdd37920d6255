package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"school-admin/internal/model"
)

type loginAuditQuerier interface {
	Query(ctx context.Context, query model.LoginAuditQuery) ([]model.LoginAudit, model.Meta, error)
}

type AuditHandler struct {
	audits loginAuditQuerier
}

func NewAuditHandler(audits loginAuditQuerier) *AuditHandler {
	return &AuditHandler{audits: audits}
}

// ListLogins serves the login audit trail. Requires AUDIT_READ via the
// policy table; the handler itself only parses the query.
func (h *AuditHandler) ListLogins(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := model.LoginAuditQuery{
		UserID:     strings.TrimSpace(q.Get("user_id")),
		Identifier: strings.TrimSpace(q.Get("identifier")),
		From:       strings.TrimSpace(q.Get("from")),
		To:         strings.TrimSpace(q.Get("to")),
		Page:       parseIntParam(q.Get("page"), 1),
		Limit:      parseIntParam(q.Get("limit"), 50),
	}

	if raw := strings.TrimSpace(q.Get("success")); raw != "" {
		if success, err := strconv.ParseBool(raw); err == nil {
			query.Success = &success
		}
	}

	entries, meta, err := h.audits.Query(r.Context(), query)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, entries, &meta)
}

func parseIntParam(raw string, fallback int) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
