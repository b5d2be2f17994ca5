package profile_test

import (
	"fmt"
	"testing"

	"github.com/MrWong99/voxprint/internal/profile"
	"github.com/MrWong99/voxprint/pkg/voice"
)

func TestUpsertRule_AddAndReinforce(t *testing.T) {
	t.Parallel()

	rules := profile.UpsertRule(nil, voice.LearnedRule{
		Type: voice.RulePrefer, Content: "short punchy openers", Confidence: 0.5,
	})
	if len(rules) != 1 || rules[0].SourceCount != 1 {
		t.Fatalf("first upsert: %+v", rules)
	}

	// Same rule again, different casing: reinforced, not duplicated.
	rules = profile.UpsertRule(rules, voice.LearnedRule{
		Type: voice.RulePrefer, Content: "Short Punchy Openers", Confidence: 0.9,
	})
	if len(rules) != 1 {
		t.Fatalf("duplicate must reinforce, got %d entries", len(rules))
	}
	if !approx(rules[0].Confidence, 0.6) {
		t.Errorf("Confidence: want 0.5+0.1, got %v", rules[0].Confidence)
	}
	if rules[0].SourceCount != 2 {
		t.Errorf("SourceCount: want 2, got %d", rules[0].SourceCount)
	}

	// Same content, different type: separate rule.
	rules = profile.UpsertRule(rules, voice.LearnedRule{
		Type: voice.RuleAvoid, Content: "short punchy openers", Confidence: 0.4,
	})
	if len(rules) != 2 {
		t.Errorf("distinct type must add a new rule, got %d entries", len(rules))
	}
}

func TestUpsertRule_CapEvictsLowestConfidence(t *testing.T) {
	t.Parallel()

	var rules []voice.LearnedRule
	for i := 0; i < profile.MaxLearnedRules; i++ {
		rules = profile.UpsertRule(rules, voice.LearnedRule{
			Type:       voice.RuleAdjust,
			Content:    fmt.Sprintf("rule %02d", i),
			Confidence: 0.3 + float64(i)*0.03,
		})
	}
	if len(rules) != profile.MaxLearnedRules {
		t.Fatalf("setup: want %d rules, got %d", profile.MaxLearnedRules, len(rules))
	}

	rules = profile.UpsertRule(rules, voice.LearnedRule{
		Type: voice.RulePrefer, Content: "the newcomer", Confidence: 0.9,
	})

	if len(rules) != profile.MaxLearnedRules {
		t.Fatalf("cap must hold, got %d entries", len(rules))
	}
	for _, r := range rules {
		if r.Content == "rule 00" {
			t.Error("lowest-confidence rule must have been evicted")
		}
	}
	if rules[len(rules)-1].Content != "the newcomer" {
		t.Error("new rule must be present after eviction")
	}
}

func TestUpsertRule_RejectsInvalid(t *testing.T) {
	t.Parallel()

	rules := profile.UpsertRule(nil, voice.LearnedRule{Type: "demand", Content: "x"})
	rules = profile.UpsertRule(rules, voice.LearnedRule{Type: voice.RulePrefer, Content: "   "})

	if len(rules) != 0 {
		t.Errorf("invalid rules must be ignored, got %+v", rules)
	}
}

func TestMeanRuleConfidence(t *testing.T) {
	t.Parallel()

	if got := profile.MeanRuleConfidence(nil); got != 0 {
		t.Errorf("empty mean: want 0, got %v", got)
	}
	rules := []voice.LearnedRule{
		{Type: voice.RulePrefer, Content: "a", Confidence: 0.6},
		{Type: voice.RuleAvoid, Content: "b", Confidence: 1.0},
	}
	if got := profile.MeanRuleConfidence(rules); !approx(got, 0.8) {
		t.Errorf("mean: want 0.8, got %v", got)
	}
}
