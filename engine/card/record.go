// Package card turns raw tracker card payloads into normalized records.
package card

import (
	"encoding/json"
	"fmt"
	"time"
)

// Record is the normalized, read-only result of parsing one tracker card.
// Sequence fields are never nil.
type Record struct {
	ID             string
	Name           string
	Description    string
	RawDescription string
	ListName       string
	Project        string
	DueDate        *time.Time
	Effort         string
	GithubRepo     string
	ImpactedAssets []string
	Stakeholders   []string
	Labels         []string
	Type           string
	Priority       string
}

// wireRecord is the snake_case JSON form. Absent optional strings are null.
type wireRecord struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	RawDescription *string    `json:"raw_description"`
	ListName       *string    `json:"list_name"`
	Project        *string    `json:"project"`
	DueDate        *time.Time `json:"due_date"`
	Effort         *string    `json:"effort"`
	GithubRepo     *string    `json:"github_repo"`
	ImpactedAssets []string   `json:"impacted_assets"`
	Stakeholders   []string   `json:"stakeholders"`
	Labels         []string   `json:"labels"`
	Type           *string    `json:"type"`
	Priority       *string    `json:"priority"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireRecord{
		ID:             r.ID,
		Name:           r.Name,
		Description:    r.Description,
		RawDescription: optional(r.RawDescription),
		ListName:       optional(r.ListName),
		Project:        optional(r.Project),
		DueDate:        r.DueDate,
		Effort:         optional(r.Effort),
		GithubRepo:     optional(r.GithubRepo),
		ImpactedAssets: nonNil(r.ImpactedAssets),
		Stakeholders:   nonNil(r.Stakeholders),
		Labels:         nonNil(r.Labels),
		Type:           optional(r.Type),
		Priority:       optional(r.Priority),
	})
}

// UnmarshalJSON accepts the serialized form produced by MarshalJSON, which is
// what API clients send back when asking for documents.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.ID == "" {
		return &MalformedRecordError{Field: "id"}
	}
	if w.Name == "" {
		return &MalformedRecordError{Field: "name"}
	}
	*r = Record{
		ID:             w.ID,
		Name:           w.Name,
		Description:    w.Description,
		RawDescription: deref(w.RawDescription),
		ListName:       deref(w.ListName),
		Project:        deref(w.Project),
		DueDate:        w.DueDate,
		Effort:         deref(w.Effort),
		GithubRepo:     deref(w.GithubRepo),
		ImpactedAssets: nonNil(w.ImpactedAssets),
		Stakeholders:   nonNil(w.Stakeholders),
		Labels:         nonNil(w.Labels),
		Type:           deref(w.Type),
		Priority:       deref(w.Priority),
	}
	return nil
}

func (r *Record) String() string {
	return fmt.Sprintf("card %s (%q)", r.ID, r.Name)
}
