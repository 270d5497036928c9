package model

import "time"

// RuleType selects which part of a message a rule matches against.
type RuleType string

const (
	RuleTypeSender  RuleType = "sender"
	RuleTypeSubject RuleType = "subject"
	RuleTypeBody    RuleType = "body"
	RuleTypeDomain  RuleType = "domain"
)

// RuleOperator selects how the rule value is compared to the candidate.
type RuleOperator string

const (
	OperatorContains   RuleOperator = "contains"
	OperatorEquals     RuleOperator = "equals"
	OperatorStartsWith RuleOperator = "starts_with"
	OperatorEndsWith   RuleOperator = "ends_with"
	OperatorRegex      RuleOperator = "regex"
)

// Rule is an ordered auto-tag matcher. Rules are created and edited
// outside the engine; the engine only reads enabled rules and never
// mutates them.
//
// Priority defines the total evaluation order, lower first; ties are
// broken by creation order.
type Rule struct {
	// ID is the internal unique identifier for this rule.
	ID string `json:"id" db:"id"`

	// Type is the message field this rule inspects.
	Type RuleType `json:"rule_type" db:"rule_type"`

	// Operator is the comparison applied to the candidate string.
	Operator RuleOperator `json:"operator" db:"operator"`

	// Value is the match value (a pattern when Operator is regex).
	Value string `json:"value" db:"value"`

	// TagID is the tag applied when the rule matches.
	TagID string `json:"tag_id" db:"tag_id"`

	// Enabled gates whether the rule participates in evaluation.
	Enabled bool `json:"enabled" db:"enabled"`

	// Priority orders evaluation, lower values first.
	Priority int `json:"priority" db:"priority"`

	// SaveAttachments, with AttachmentPath, turns a match into an
	// auto-save directive for the message's attachments.
	SaveAttachments bool `json:"save_attachments" db:"save_attachments"`

	// AttachmentPath is the destination directory for auto-saved
	// attachments, empty when the rule only tags.
	AttachmentPath string `json:"attachment_path" db:"attachment_path"`

	// CreatedAt breaks priority ties: earlier rules evaluate first.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
