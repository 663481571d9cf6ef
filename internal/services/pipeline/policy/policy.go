// Package policy loads the operator-tunable pipeline policy from a
// YAML file: approval keyword sets and timing, plus the new-customer
// decision rule.
package policy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/paperco/orderdesk/internal/platform/timeouts"
	"github.com/paperco/orderdesk/internal/services/pipeline/domain"
)

// ErrOverlappingKeywords indicates a word appears in both the approve
// and deny sets, which would make reply classification ambiguous.
var ErrOverlappingKeywords = errors.New("approve and deny keyword sets overlap")

// Duration is a time.Duration that unmarshals from YAML strings like
// "180s" or "2s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Approval configures the human review gate.
type Approval struct {
	Enabled      bool     `yaml:"enabled"`
	Timeout      Duration `yaml:"timeout"`
	PollInterval Duration `yaml:"poll_interval"`
	ApproveWords []string `yaml:"approve_words"`
	DenyWords    []string `yaml:"deny_words"`
}

// Decision configures the business-rule stage.
type Decision struct {
	BlockNewCustomers bool `yaml:"block_new_customers"`
}

// Policy is the operator-tunable pipeline configuration.
type Policy struct {
	Approval Approval `yaml:"approval"`
	Decision Decision `yaml:"decision"`
}

// Default returns the stock policy: approval enabled with the default
// keyword sets, 180s timeout, 2s poll interval, and new customers
// allowed through the decision stage.
func Default() Policy {
	return Policy{
		Approval: Approval{
			Enabled:      true,
			Timeout:      Duration(timeouts.ApprovalWait),
			PollInterval: Duration(timeouts.ApprovalPoll),
			ApproveWords: append([]string(nil), domain.DefaultApproveWords...),
			DenyWords:    append([]string(nil), domain.DefaultDenyWords...),
		},
	}
}

// Load reads a policy file, filling omitted fields from Default. An
// empty path returns the default policy unchanged.
func Load(path string) (Policy, error) {
	policy := Default()
	if strings.TrimSpace(path) == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	policy.normalize()
	if err := policy.Validate(); err != nil {
		return Policy{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return policy, nil
}

func (p *Policy) normalize() {
	p.Approval.ApproveWords = normalizeWords(p.Approval.ApproveWords)
	p.Approval.DenyWords = normalizeWords(p.Approval.DenyWords)
	if len(p.Approval.ApproveWords) == 0 {
		p.Approval.ApproveWords = append([]string(nil), domain.DefaultApproveWords...)
	}
	if len(p.Approval.DenyWords) == 0 {
		p.Approval.DenyWords = append([]string(nil), domain.DefaultDenyWords...)
	}
	if p.Approval.Timeout <= 0 {
		p.Approval.Timeout = Duration(timeouts.ApprovalWait)
	}
	if p.Approval.PollInterval <= 0 {
		p.Approval.PollInterval = Duration(timeouts.ApprovalPoll)
	}
}

// Validate rejects policies whose keyword sets overlap.
func (p Policy) Validate() error {
	deny := make(map[string]struct{}, len(p.Approval.DenyWords))
	for _, word := range p.Approval.DenyWords {
		deny[word] = struct{}{}
	}
	for _, word := range p.Approval.ApproveWords {
		if _, ok := deny[word]; ok {
			return fmt.Errorf("%w: %q", ErrOverlappingKeywords, word)
		}
	}
	return nil
}

// ApprovalPolicy converts to the domain gate configuration.
func (p Policy) ApprovalPolicy() domain.ApprovalPolicy {
	return domain.ApprovalPolicy{
		Enabled:      p.Approval.Enabled,
		Timeout:      time.Duration(p.Approval.Timeout),
		PollInterval: time.Duration(p.Approval.PollInterval),
		ApproveWords: append([]string(nil), p.Approval.ApproveWords...),
		DenyWords:    append([]string(nil), p.Approval.DenyWords...),
	}
}

// DecisionPolicy converts to the domain decision configuration.
func (p Policy) DecisionPolicy() domain.DecisionPolicy {
	return domain.DecisionPolicy{BlockNewCustomers: p.Decision.BlockNewCustomers}
}

func normalizeWords(words []string) []string {
	normalized := make([]string, 0, len(words))
	seen := make(map[string]struct{}, len(words))
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		if _, ok := seen[word]; ok {
			continue
		}
		seen[word] = struct{}{}
		normalized = append(normalized, word)
	}
	return normalized
}
