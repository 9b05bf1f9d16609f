package card

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestRecord_MarshalJSON(t *testing.T) {
	t.Run("Should emit null for absent optionals and [] for empty sequences", func(t *testing.T) {
		data, err := json.Marshal(Record{ID: "c1", Name: "Card"})
		require.NoError(t, err)
		doc := gjson.ParseBytes(data)
		assert.Equal(t, "c1", doc.Get("id").String())
		assert.Equal(t, gjson.Null, doc.Get("project").Type)
		assert.Equal(t, gjson.Null, doc.Get("due_date").Type)
		assert.Equal(t, "[]", doc.Get("impacted_assets").Raw)
		assert.Equal(t, "[]", doc.Get("stakeholders").Raw)
		assert.Equal(t, "[]", doc.Get("labels").Raw)
		assert.True(t, doc.Get("description").Exists())
	})

	t.Run("Should use snake_case keys", func(t *testing.T) {
		due := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		data, err := json.Marshal(&Record{
			ID: "c1", Name: "Card", GithubRepo: "https://x", ListName: "Todo",
			RawDescription: "raw", DueDate: &due, ImpactedAssets: []string{"a.txt"},
		})
		require.NoError(t, err)
		doc := gjson.ParseBytes(data)
		assert.Equal(t, "https://x", doc.Get("github_repo").String())
		assert.Equal(t, "Todo", doc.Get("list_name").String())
		assert.Equal(t, "raw", doc.Get("raw_description").String())
		assert.Equal(t, "2024-01-02T03:04:05Z", doc.Get("due_date").String())
		assert.Equal(t, `["a.txt"]`, doc.Get("impacted_assets").Raw)
	})
}

func TestRecord_UnmarshalJSON(t *testing.T) {
	t.Run("Should read the serialized form with nulls", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"id":"c1","name":"Card","description":"d","project":null,"stakeholders":null,"type":"Bug"}`), &rec)
		require.NoError(t, err)
		assert.Equal(t, "Bug", rec.Type)
		assert.Empty(t, rec.Project)
		assert.Equal(t, []string{}, rec.Stakeholders)
	})

	t.Run("Should reject records without id or name", func(t *testing.T) {
		var rec Record
		err := json.Unmarshal([]byte(`{"name":"Card"}`), &rec)
		assert.ErrorIs(t, err, ErrMalformedRecord)
		err = json.Unmarshal([]byte(`{"id":"c1"}`), &rec)
		assert.ErrorIs(t, err, ErrMalformedRecord)
	})

	t.Run("Should survive a parse and serialize cycle", func(t *testing.T) {
		parsed, err := Parse(t.Context(), []byte(`{"id":"c9","name":"N","desc":"- **Project:** P\nDescription: body"}`), "L")
		require.NoError(t, err)
		data, err := json.Marshal(parsed)
		require.NoError(t, err)
		var back Record
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, *parsed, back)
	})
}
