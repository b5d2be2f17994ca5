package profile

import (
	"strings"

	"github.com/MrWong99/voxprint/pkg/voice"
)

// MaxLearnedRules caps the rule list on a profile.
const MaxLearnedRules = 20

// reinforceStep is added to a rule's confidence each time it is re-observed.
const reinforceStep = 0.1

// UpsertRule adds rule to rules, deduplicating by (Type, Content)
// case-insensitively. A repeated rule reinforces the stored entry instead:
// confidence rises by 0.1 (capped at 1.0) and SourceCount increments.
//
// When the list is full, the lowest-confidence entry (oldest among ties) is
// evicted to make room. The input slice is not modified; rule types that
// fail [voice.RuleType.IsValid] are ignored.
func UpsertRule(rules []voice.LearnedRule, rule voice.LearnedRule) []voice.LearnedRule {
	if !rule.Type.IsValid() || strings.TrimSpace(rule.Content) == "" {
		return rules
	}
	rule.Content = strings.TrimSpace(rule.Content)
	rule.Confidence = clampUnit(rule.Confidence)
	if rule.SourceCount < 1 {
		rule.SourceCount = 1
	}

	out := make([]voice.LearnedRule, len(rules))
	copy(out, rules)

	key := ruleKey(rule)
	for i := range out {
		if ruleKey(out[i]) == key {
			out[i].Confidence = clampUnit(out[i].Confidence + reinforceStep)
			out[i].SourceCount++
			return out
		}
	}

	if len(out) >= MaxLearnedRules {
		evict := 0
		for i := 1; i < len(out); i++ {
			if out[i].Confidence < out[evict].Confidence {
				evict = i
			}
		}
		out = append(out[:evict], out[evict+1:]...)
	}
	return append(out, rule)
}

// ruleKey is the dedup key for a learned rule.
func ruleKey(r voice.LearnedRule) string {
	return string(r.Type) + "\x00" + strings.ToLower(r.Content)
}

// MeanRuleConfidence returns the mean confidence across rules, 0 if empty.
func MeanRuleConfidence(rules []voice.LearnedRule) float64 {
	if len(rules) == 0 {
		return 0
	}
	var sum float64
	for _, r := range rules {
		sum += r.Confidence
	}
	return sum / float64(len(rules))
}

// clampUnit forces v into [0, 1].
func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
