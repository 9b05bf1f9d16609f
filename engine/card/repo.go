package card

import (
	"regexp"
	"strings"
)

var (
	anyURL           = regexp.MustCompile(`https?://\S+`)
	trailingURLPunct = regexp.MustCompile(`[.,;)>]+$`)
)

// CleanRepoURLs returns every URL in the record's repository field with
// trailing punctuation removed, de-duplicated in first-seen order and joined
// by a single space. The raw value is returned when it holds no URL, and the
// empty string when the field is absent.
func CleanRepoURLs(r *Record) string {
	if r == nil || r.GithubRepo == "" {
		return ""
	}
	found := anyURL.FindAllString(r.GithubRepo, -1)
	if len(found) == 0 {
		return r.GithubRepo
	}
	unique := make([]string, 0, len(found))
	seen := make(map[string]struct{}, len(found))
	for _, u := range found {
		u = trailingURLPunct.ReplaceAllString(u, "")
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return strings.Join(unique, " ")
}
