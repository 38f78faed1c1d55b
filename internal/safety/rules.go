package safety

import "regexp"

// Rule defines a prompt injection pattern. Source is reported back in rejection reasons.
type Rule struct {
	Name     string
	Source   string
	Regex    *regexp.Regexp
	Category string // "instruction_bypass", "role_override", "script"
}

func newRule(name, category, source string) Rule {
	return Rule{
		Name:     name,
		Source:   source,
		Regex:    regexp.MustCompile(`(?i)` + source),
		Category: category,
	}
}

// DefaultRules returns the built-in injection detection rules.
func DefaultRules() []Rule {
	return []Rule{
		newRule("ignore_previous", "instruction_bypass", `ignore\s+previous\s+instructions`),
		newRule("system_prefix", "role_override", `system\s*:`),
		newRule("assistant_prefix", "role_override", `assistant\s*:`),
		newRule("human_prefix", "role_override", `human\s*:`),
		newRule("prompt_prefix", "role_override", `prompt\s*:`),
		newRule("script_tag", "script", `<\s*script\s*>`),
		newRule("javascript_uri", "script", `javascript\s*:`),
	}
}
