package card

import (
	"regexp"
	"strings"
)

var (
	firstURL   = regexp.MustCompile(`https?://[^\s)]+`)
	dashedBold = regexp.MustCompile(`^-\s*\*\*(.*?):\*\*\s*(.*)$`)
	bold       = regexp.MustCompile(`^\*\*(.*?):\*\*\s*(.*)$`)
	plainPair  = regexp.MustCompile(`^([A-Za-z][A-Za-z ]*):\s*(.*)$`)
)

// boldShapes are tried in order; the first one that matches yields the key and value.
var boldShapes = []*regexp.Regexp{dashedBold, bold}

// plainKeys are the only keys accepted in an unformatted "Key: Value" line,
// so prose containing a colon never claims a field.
var plainKeys = map[string]struct{}{
	"project":         {},
	"due date":        {},
	"effort":          {},
	"github repo":     {},
	"impacted assets": {},
	"stakeholders":    {},
}

// rule binds a key matcher to a Record field setter. For preamble rules the
// key is the lowercase key text; for label rules it is the raw label.
type rule struct {
	name           string
	matches        func(key string) bool
	isSet          func(r *Record) bool
	set            func(r *Record, value string)
	firstMatchWins bool
}

// preambleRules are evaluated per key/value line. The first rule that matches
// the key and may still write its field claims the line.
var preambleRules = []rule{
	{
		name:           "project",
		matches:        contains("project"),
		isSet:          func(r *Record) bool { return r.Project != "" },
		set:            func(r *Record, v string) { r.Project = v },
		firstMatchWins: true,
	},
	{
		name:           "due date",
		matches:        contains("due date"),
		isSet:          func(r *Record) bool { return r.DueDate != nil },
		set:            func(r *Record, v string) { r.DueDate = parseDue(v) },
		firstMatchWins: true,
	},
	{
		name:           "effort",
		matches:        contains("effort"),
		isSet:          func(r *Record) bool { return r.Effort != "" },
		set:            func(r *Record, v string) { r.Effort = v },
		firstMatchWins: true,
	},
	{
		name:           "repo",
		matches:        contains("repo"),
		isSet:          func(r *Record) bool { return r.GithubRepo != "" },
		set:            func(r *Record, v string) { r.GithubRepo = firstURL.FindString(v) },
		firstMatchWins: true,
	},
	{
		name:           "impacted assets",
		matches:        contains("impacted assets"),
		isSet:          func(r *Record) bool { return len(r.ImpactedAssets) > 0 },
		set:            func(r *Record, v string) { r.ImpactedAssets = splitList(v) },
		firstMatchWins: true,
	},
	{
		name:           "stakeholders",
		matches:        contains("stakeholders"),
		isSet:          func(r *Record) bool { return len(r.Stakeholders) > 0 },
		set:            func(r *Record, v string) { r.Stakeholders = splitList(v) },
		firstMatchWins: true,
	},
}

// labelRules are evaluated for every label in order; each matching rule overwrites.
var labelRules = []rule{
	{
		name:    "type",
		matches: func(label string) bool { return strings.Contains(label, "Type:") },
		isSet:   func(r *Record) bool { return r.Type != "" },
		set:     func(r *Record, v string) { r.Type = afterLastColon(v) },
	},
	{
		name:    "priority",
		matches: func(label string) bool { return strings.Contains(label, "Priority:") },
		isSet:   func(r *Record) bool { return r.Priority != "" },
		set:     func(r *Record, v string) { r.Priority = afterLastColon(v) },
	},
}

// claims reports whether the rule may write its field for key on r.
func (ru *rule) claims(r *Record, key string) bool {
	if !ru.matches(key) {
		return false
	}
	return !ru.firstMatchWins || !ru.isSet(r)
}

// applyPreamble runs the first claiming rule for one key/value pair.
func applyPreamble(r *Record, key, value string) (string, bool) {
	for i := range preambleRules {
		ru := &preambleRules[i]
		if ru.claims(r, key) {
			ru.set(r, value)
			return ru.name, true
		}
	}
	return "", false
}

// applyLabels runs every claiming label rule for each label.
func applyLabels(r *Record, labels []string) {
	for _, label := range labels {
		for i := range labelRules {
			ru := &labelRules[i]
			if ru.claims(r, label) {
				ru.set(r, label)
			}
		}
	}
}

// splitKeyValue returns the key (lowercased, trimmed) and value of a preamble line.
func splitKeyValue(line string) (string, string, bool) {
	for _, shape := range boldShapes {
		if m := shape.FindStringSubmatch(line); m != nil {
			return strings.ToLower(strings.TrimSpace(m[1])), strings.TrimSpace(m[2]), true
		}
	}
	m := plainPair.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	key := strings.ToLower(strings.TrimSpace(m[1]))
	if _, ok := plainKeys[key]; !ok {
		return "", "", false
	}
	return key, strings.TrimSpace(m[2]), true
}

// isRepoLine reports whether a trimmed line names the repository directly.
func isRepoLine(line string) bool {
	lower := strings.ToLower(line)
	return strings.HasPrefix(lower, "repo:") || strings.HasPrefix(lower, "relevant repo:")
}

func contains(sub string) func(string) bool {
	return func(key string) bool { return strings.Contains(key, sub) }
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func afterLastColon(label string) string {
	return strings.TrimSpace(label[strings.LastIndex(label, ":")+1:])
}
