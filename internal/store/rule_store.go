package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/hmalik/maildash/internal/model"
)

// CreateRule inserts a new auto-tag rule.
// If the rule has no ID, a new UUID is generated.
func (s *SQLiteStore) CreateRule(ctx context.Context, rule model.Rule) error {
	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO rules (
			id, rule_type, operator, value, tag_id, enabled, priority,
			save_attachments, attachment_path, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rule.ID, string(rule.Type), string(rule.Operator), rule.Value,
		rule.TagID, boolToInt(rule.Enabled), rule.Priority,
		boolToInt(rule.SaveAttachments), rule.AttachmentPath, rule.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating rule: %w", err)
	}

	return nil
}

// GetActiveRules returns enabled rules in evaluation order: priority
// ascending, ties broken by creation order (then by id so the order is
// total even for rows created in the same instant).
func (s *SQLiteStore) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM rules WHERE enabled = 1 ORDER BY priority ASC, created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying active rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// GetRules returns all rules, active or not, in evaluation order.
func (s *SQLiteStore) GetRules(ctx context.Context) ([]model.Rule, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT * FROM rules ORDER BY priority ASC, created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("querying rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// collectRules scans all rows into a rule slice.
func collectRules(rows *sqlx.Rows) ([]model.Rule, error) {
	var rules []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// scanRule scans a rule row from a sqlx.Rows result set.
func scanRule(rows *sqlx.Rows) (model.Rule, error) {
	var (
		rule            model.Rule
		ruleType        string
		operator        string
		enabled         int
		saveAttachments int
		createdAt       time.Time
	)

	err := rows.Scan(
		&rule.ID, &ruleType, &operator, &rule.Value, &rule.TagID,
		&enabled, &rule.Priority, &saveAttachments, &rule.AttachmentPath,
		&createdAt,
	)
	if err != nil {
		return model.Rule{}, fmt.Errorf("scanning rule row: %w", err)
	}

	rule.Type = model.RuleType(ruleType)
	rule.Operator = model.RuleOperator(operator)
	rule.Enabled = enabled != 0
	rule.SaveAttachments = saveAttachments != 0
	rule.CreatedAt = createdAt

	return rule, nil
}
