package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"school-admin/internal/model"
)

type AuditRepository struct {
	pool *pgxpool.Pool
}

func NewAuditRepository(pool *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{pool: pool}
}

// CreateLoginAudit records one login attempt. userID may be empty when
// the identifier matched no account.
func (r *AuditRepository) CreateLoginAudit(ctx context.Context, entry model.LoginAudit) error {
	var userID *string
	if entry.UserID != "" {
		userID = &entry.UserID
	}

	_, err := r.pool.Exec(ctx,
		`INSERT INTO login_audit (id, user_id, identifier, success, client_ip, user_agent, occurred_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), userID, entry.Identifier, entry.Success,
		entry.ClientIP, entry.UserAgent, entry.OccurredAt)
	if err != nil {
		return fmt.Errorf("create login audit: %w", err)
	}
	return nil
}

func (r *AuditRepository) Query(ctx context.Context, query model.LoginAuditQuery) ([]model.LoginAudit, model.Meta, error) {
	if query.Page < 1 {
		query.Page = 1
	}
	if query.Limit <= 0 {
		query.Limit = 50
	}
	if query.Limit > 200 {
		query.Limit = 200
	}

	where := make([]string, 0)
	args := make([]any, 0)
	argIdx := 1

	if userID := strings.TrimSpace(query.UserID); userID != "" {
		where = append(where, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, userID)
		argIdx++
	}
	if identifier := strings.TrimSpace(query.Identifier); identifier != "" {
		where = append(where, fmt.Sprintf("lower(identifier) = lower($%d)", argIdx))
		args = append(args, identifier)
		argIdx++
	}
	if query.Success != nil {
		where = append(where, fmt.Sprintf("success = $%d", argIdx))
		args = append(args, *query.Success)
		argIdx++
	}
	if from := strings.TrimSpace(query.From); from != "" {
		where = append(where, fmt.Sprintf("occurred_at >= $%d::timestamptz", argIdx))
		args = append(args, from)
		argIdx++
	}
	if to := strings.TrimSpace(query.To); to != "" {
		where = append(where, fmt.Sprintf("occurred_at <= $%d::timestamptz", argIdx))
		args = append(args, to)
		argIdx++
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM login_audit %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, model.Meta{}, fmt.Errorf("count login audit: %w", err)
	}

	meta := model.NewMeta(query.Page, query.Limit, total)

	offset := (query.Page - 1) * query.Limit
	dataQuery := fmt.Sprintf(
		`SELECT id, user_id, identifier, success, client_ip, user_agent, occurred_at
		 FROM login_audit %s
		 ORDER BY occurred_at DESC
		 LIMIT $%d OFFSET $%d`, whereClause, argIdx, argIdx+1)
	args = append(args, query.Limit, offset)

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, model.Meta{}, fmt.Errorf("query login audit: %w", err)
	}
	defer rows.Close()

	entries := make([]model.LoginAudit, 0)
	for rows.Next() {
		var e model.LoginAudit
		var userID, clientIP, userAgent *string
		if err := rows.Scan(&e.ID, &userID, &e.Identifier, &e.Success, &clientIP, &userAgent, &e.OccurredAt); err != nil {
			return nil, model.Meta{}, fmt.Errorf("scan login audit: %w", err)
		}
		if userID != nil {
			e.UserID = *userID
		}
		if clientIP != nil {
			e.ClientIP = *clientIP
		}
		if userAgent != nil {
			e.UserAgent = *userAgent
		}
		entries = append(entries, e)
	}

	return entries, meta, rows.Err()
}
