package symptom

import "strings"

// Decision is the outcome of matching one utterance.
type Decision struct {
	Topic    Topic
	Trigger  string
	Response string
}

// Matched reports whether a rule fired.
func (d Decision) Matched() bool {
	return d.Topic != FallbackTopic
}

// Matcher evaluates an ordered rule table against free text.
type Matcher struct {
	rules    []Rule
	fallback string
}

// NewMatcher copies rules, lower-casing every trigger. An empty fallback
// uses FallbackResponse.
func NewMatcher(rules []Rule, fallback string) *Matcher {
	if fallback == "" {
		fallback = FallbackResponse
	}

	copied := make([]Rule, 0, len(rules))
	for _, r := range rules {
		triggers := make([]string, 0, len(r.Triggers))
		for _, t := range r.Triggers {
			if t = strings.ToLower(t); t != "" {
				triggers = append(triggers, t)
			}
		}
		copied = append(copied, Rule{Topic: r.Topic, Triggers: triggers, Response: r.Response})
	}
	return &Matcher{rules: copied, fallback: fallback}
}

// Default returns a Matcher over DefaultRules.
func Default() *Matcher {
	return NewMatcher(DefaultRules(), FallbackResponse)
}

// Normalize is the form input is matched in.
func Normalize(text string) string {
	return strings.ToLower(text)
}

// Match returns the first rule with any trigger contained in the
// normalized text, or the fallback decision.
func (m *Matcher) Match(text string) Decision {
	normalized := Normalize(text)
	for _, rule := range m.rules {
		for _, trigger := range rule.Triggers {
			if strings.Contains(normalized, trigger) {
				return Decision{Topic: rule.Topic, Trigger: trigger, Response: rule.Response}
			}
		}
	}
	return Decision{Topic: FallbackTopic, Response: m.fallback}
}

// Respond returns only the reply text for text.
func (m *Matcher) Respond(text string) string {
	return m.Match(text).Response
}

// Rules returns the table in evaluation order.
func (m *Matcher) Rules() []Rule {
	return append([]Rule(nil), m.rules...)
}
