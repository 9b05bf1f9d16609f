package card

import (
	"context"
	"regexp"
	"strings"

	"github.com/k2brd/k2brd/pkg/logger"
	"github.com/tidwall/gjson"
)

var descriptionDelimiter = regexp.MustCompile(`(?i)(### |<h[1-6]>)?\s*Description:\s*(</h[1-6]>)?`)

// Parse builds a Record from one raw tracker card JSON object.
// listNameOverride, when non-empty, wins over the card's embedded list name.
func Parse(ctx context.Context, raw []byte, listNameOverride string) (*Record, error) {
	if !gjson.ValidBytes(raw) {
		return nil, &MalformedRecordError{Reason: "card payload is not valid JSON"}
	}
	return ParseResult(ctx, gjson.ParseBytes(raw), listNameOverride)
}

// ParseResult is Parse for an already decoded gjson value, used when walking
// card arrays returned by the tracker.
func ParseResult(ctx context.Context, card gjson.Result, listNameOverride string) (*Record, error) {
	if !card.IsObject() {
		return nil, &MalformedRecordError{Reason: "card payload is not an object"}
	}
	id, err := requiredString(card, "id")
	if err != nil {
		return nil, err
	}
	name, err := requiredString(card, "name")
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:       id,
		Name:     name,
		ListName: listNameOverride,
		Labels:   labelNames(card.Get("labels")),
	}
	if rec.ListName == "" {
		rec.ListName = card.Get("list.name").String()
	}
	if due := card.Get("due"); due.Type == gjson.String {
		rec.DueDate = parseDue(due.String())
	}

	text := card.Get("desc").String()
	rec.RawDescription = text
	preamble, body := splitDescription(text)
	rec.Description = body

	log := logger.FromContext(ctx).With("card_id", rec.ID)
	parsePreamble(log, rec, preamble)
	applyLabels(rec, rec.Labels)

	rec.ImpactedAssets = nonNil(rec.ImpactedAssets)
	rec.Stakeholders = nonNil(rec.Stakeholders)
	log.Debug("Card parsed",
		"project", rec.Project,
		"effort", rec.Effort,
		"repo", rec.GithubRepo,
		"type", rec.Type,
		"priority", rec.Priority,
	)
	return rec, nil
}

// splitDescription separates the metadata preamble from the narrative body.
// Without a delimiter the whole text is preamble and the body is empty.
func splitDescription(text string) (string, string) {
	loc := descriptionDelimiter.FindStringIndex(text)
	if loc == nil {
		return text, ""
	}
	return text[:loc[0]], strings.TrimSpace(text[loc[1]:])
}

func parsePreamble(log logger.Logger, rec *Record, preamble string) {
	for _, line := range strings.Split(preamble, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isRepoLine(line) {
			if rec.GithubRepo == "" {
				rec.GithubRepo = firstURL.FindString(line)
			}
			continue
		}
		key, value, ok := splitKeyValue(line)
		if !ok {
			continue
		}
		if field, claimed := applyPreamble(rec, key, value); claimed {
			log.Debug("Preamble field matched", "key", key, "field", field)
		}
	}
}

func requiredString(card gjson.Result, field string) (string, error) {
	v := card.Get(field)
	if !v.Exists() || v.Type != gjson.String || v.String() == "" {
		return "", &MalformedRecordError{Field: field}
	}
	return v.String(), nil
}

// labelNames accepts label objects with a name as well as bare strings.
func labelNames(labels gjson.Result) []string {
	names := []string{}
	labels.ForEach(func(_, label gjson.Result) bool {
		switch {
		case label.Type == gjson.String:
			names = append(names, label.String())
		case label.IsObject() && label.Get("name").Type == gjson.String:
			names = append(names, label.Get("name").String())
		}
		return true
	})
	return names
}
