package tracker

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/k2brd/k2brd/engine/card"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func sampleCards() []*card.Record {
	due := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	return []*card.Record{
		{
			ID: "c1", Name: "Login, v2", ListName: "Backlog", Project: "Apollo", DueDate: &due,
			ImpactedAssets: []string{"api.go", "web.ts"}, Stakeholders: []string{}, Labels: []string{"Type: Bug"},
			Type: "Bug", Description: "line one\nline two",
		},
		{ID: "c2", Name: "Search", ImpactedAssets: []string{}, Stakeholders: []string{}, Labels: []string{}},
	}
}

func TestParseFormat(t *testing.T) {
	t.Run("Should accept json, csv and empty", func(t *testing.T) {
		for in, want := range map[string]Format{"": FormatJSON, "JSON": FormatJSON, " csv ": FormatCSV} {
			got, err := ParseFormat(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("Should reject other formats", func(t *testing.T) {
		_, err := ParseFormat("xml")
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})
}

func TestExport(t *testing.T) {
	t.Run("Should write serialized records as JSON", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, sampleCards(), FormatJSON))
		doc := gjson.ParseBytes(buf.Bytes())
		assert.Equal(t, int64(2), doc.Get("#").Int())
		assert.Equal(t, "Backlog", doc.Get("0.list_name").String())
		assert.Equal(t, "2024-05-01T00:00:00Z", doc.Get("0.due_date").String())
		assert.Equal(t, gjson.Null, doc.Get("1.project").Type)
	})

	t.Run("Should write an empty JSON array for no cards", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, nil, FormatJSON))
		assert.Equal(t, "[]\n", buf.String())
	})

	t.Run("Should write CSV with a header row", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Export(&buf, sampleCards(), FormatCSV))
		rows, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, csvHeader, rows[0])
		assert.Equal(t, "Login, v2", rows[1][1])
		assert.Equal(t, "2024-05-01T00:00:00Z", rows[1][4])
		assert.Equal(t, "api.go; web.ts", rows[1][7])
		assert.Equal(t, "line one\nline two", rows[1][12])
		assert.Equal(t, "", rows[2][4])
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		var buf bytes.Buffer
		assert.ErrorIs(t, Export(&buf, nil, Format("xml")), ErrUnsupportedFormat)
	})
}

func TestFormat_ContentType(t *testing.T) {
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "application/json; charset=utf-8", FormatJSON.ContentType())
}
