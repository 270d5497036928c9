// Package rules evaluates user-defined auto-tag rules against message
// content, in priority order.
package rules

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hmalik/maildash/internal/model"
)

// Input is the message content a rule set is evaluated against.
type Input struct {
	// Sender is the from address.
	Sender string

	// Subject is the decoded subject line.
	Subject string

	// Body is the plain text, or text derived from the HTML body when
	// no plain text exists.
	Body string
}

// RuleError records a single rule that failed to evaluate (an invalid
// regex pattern). The rule is skipped for the run; other rules still
// apply.
type RuleError struct {
	RuleID string
	Err    error
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

// Outcome is the accumulated result of evaluating a rule set against
// one message.
type Outcome struct {
	// TagIDs are the tags to apply, in first-match order, without
	// duplicates.
	TagIDs []string

	// SaveDir is the attachment destination directory of the first
	// matched rule carrying a save directive. When later rules name a
	// different destination for the same attachments, the
	// first-evaluated rule wins, so a message resolves to at most one
	// destination. Empty means no save directive matched.
	SaveDir string

	// RuleErrors lists rules skipped during this run.
	RuleErrors []RuleError
}

// matchers holds one matcher function per non-regex operator. All
// comparisons are case-insensitive; callers pass lowercased strings.
var matchers = map[model.RuleOperator]func(candidate, value string) bool{
	model.OperatorContains:   strings.Contains,
	model.OperatorEquals:     func(c, v string) bool { return c == v },
	model.OperatorStartsWith: strings.HasPrefix,
	model.OperatorEndsWith:   strings.HasSuffix,
}

// Evaluate runs the given rules against the message content and
// accumulates tags and the save destination. Rules are evaluated in
// priority order, lower first, ties broken by creation order; a rule
// whose regex fails to compile is recorded and skipped without
// disturbing the rest of the run.
func Evaluate(rules []model.Rule, in Input) Outcome {
	ordered := make([]model.Rule, len(rules))
	copy(ordered, rules)
	Sort(ordered)

	var out Outcome
	seenTags := make(map[string]bool)

	for _, rule := range ordered {
		if !rule.Enabled {
			continue
		}

		matched, err := Matches(rule, in)
		if err != nil {
			out.RuleErrors = append(out.RuleErrors, RuleError{RuleID: rule.ID, Err: err})
			continue
		}
		if !matched {
			continue
		}

		if !seenTags[rule.TagID] {
			seenTags[rule.TagID] = true
			out.TagIDs = append(out.TagIDs, rule.TagID)
		}

		if rule.SaveAttachments && rule.AttachmentPath != "" && out.SaveDir == "" {
			out.SaveDir = rule.AttachmentPath
		}
	}

	return out
}

// Matches reports whether a single rule matches the message content.
// The only possible error is an invalid regex pattern.
func Matches(rule model.Rule, in Input) (bool, error) {
	candidate := candidateFor(rule.Type, in)
	if candidate == "" {
		return false, nil
	}

	if rule.Operator == model.OperatorRegex {
		re, err := regexp.Compile("(?i)" + rule.Value)
		if err != nil {
			return false, fmt.Errorf("compiling pattern %q: %w", rule.Value, err)
		}
		return re.MatchString(candidate), nil
	}

	match, ok := matchers[rule.Operator]
	if !ok {
		return false, nil
	}

	return match(strings.ToLower(candidate), strings.ToLower(rule.Value)), nil
}

// Sort orders rules for evaluation: priority ascending, then creation
// time, then id so the order is total and deterministic.
func Sort(rules []model.Rule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		if !rules[i].CreatedAt.Equal(rules[j].CreatedAt) {
			return rules[i].CreatedAt.Before(rules[j].CreatedAt)
		}
		return rules[i].ID < rules[j].ID
	})
}

// candidateFor builds the string a rule is matched against.
func candidateFor(t model.RuleType, in Input) string {
	switch t {
	case model.RuleTypeSender:
		return in.Sender
	case model.RuleTypeSubject:
		return in.Subject
	case model.RuleTypeBody:
		return in.Body
	case model.RuleTypeDomain:
		if _, domain, found := strings.Cut(in.Sender, "@"); found {
			return domain
		}
		return in.Sender
	default:
		return ""
	}
}
