package brd

import (
	"github.com/k2brd/k2brd/engine/card"
	"github.com/k2brd/k2brd/engine/llm"
	"github.com/k2brd/k2brd/engine/textclean"
)

// BuildContext returns the cleaned prompt context of a card. Keys keep a fixed
// order; absent, empty-string and empty-sequence values are dropped.
func BuildContext(c *card.Record) llm.PromptContext {
	fields := []llm.Field{
		{Key: "project", Value: c.Project},
		{Key: "effort", Value: c.Effort},
		{Key: "stakeholders", Value: c.Stakeholders},
		{Key: "github_repo_url", Value: card.CleanRepoURLs(c)},
		{Key: "impacted_assets_list", Value: c.ImpactedAssets},
		{Key: "type", Value: c.Type},
		{Key: "priority", Value: c.Priority},
	}
	out := make(llm.PromptContext, 0, len(fields))
	for _, f := range fields {
		cleaned := textclean.NormalizeValue(f.Value)
		if isEmpty(cleaned) {
			continue
		}
		out = append(out, llm.Field{Key: f.Key, Value: cleaned})
	}
	return out
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case []string:
		return len(val) == 0
	case []any:
		return len(val) == 0
	default:
		return false
	}
}
