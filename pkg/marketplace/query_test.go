package marketplace

import (
	"encoding/json"
	"testing"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func price(v float64) *float64 { return &v }

func TestTranslateBounds(t *testing.T) {
	q := Translate(model.SavedSearch{Keywords: "laptop", MinPrice: price(50), MaxPrice: price(500)})

	assert.Equal(t, "laptop", q.SearchText)
	assert.Equal(t, "50", q.LowPrice)
	assert.Equal(t, "500", q.HighPrice)
	assert.Equal(t, "false", q.SearchPickupOnly)
	assert.Empty(t, q.SelectedCategoryIds)
	assert.Empty(t, q.CatIds)
	assert.Empty(t, q.Categories())
	assert.False(t, q.IsMultipleCategoryIds)
}

func TestTranslateDefaults(t *testing.T) {
	q := Translate(model.SavedSearch{Keywords: "chair"})

	assert.Equal(t, "0", q.LowPrice)
	assert.Equal(t, "999999", q.HighPrice)
	assert.Equal(t, "false", q.SearchPickupOnly)
	assert.Equal(t, "true", q.SearchDescriptions)
	assert.Equal(t, "false", q.SearchClosedAuctions)
	assert.Equal(t, "1", q.SortColumn)
	assert.Equal(t, 1, q.CategoryLevel)
}

func TestTranslatePickupAndCategories(t *testing.T) {
	q := Translate(model.SavedSearch{
		Keywords:    "gaylord",
		PickupOnly:  true,
		CategoryIDs: "12,40",
		MinPrice:    price(12.5),
	})

	assert.Equal(t, "true", q.SearchPickupOnly)
	assert.Equal(t, "12,40", q.SelectedCategoryIds)
	assert.Equal(t, "12,40", q.CatIds)
	assert.True(t, q.IsMultipleCategoryIds)
	assert.Equal(t, []string{"12", "40"}, q.Categories())
	assert.Equal(t, "12.5", q.LowPrice)
}

func TestQueryEncodeFieldNames(t *testing.T) {
	body, err := Translate(model.SavedSearch{Keywords: "laptop", PickupOnly: true}).Encode()
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &fields))

	assert.Equal(t, "laptop", fields["searchText"])
	assert.Equal(t, "true", fields["searchPickupOnly"])
	assert.Equal(t, "0", fields["lowPrice"])
	assert.Equal(t, "999999", fields["highPrice"])
	assert.Equal(t, false, fields["isSize"])
	assert.Equal(t, float64(0), fields["savedSearchId"])
	assert.Len(t, fields, 31)
}

func TestQueryGolden(t *testing.T) {
	q := Translate(model.SavedSearch{Keywords: "laptop", MinPrice: price(50), MaxPrice: price(500)})
	body, err := json.MarshalIndent(q, "", "  ")
	require.NoError(t, err)

	g := goldie.New(t)
	g.Assert(t, "laptop_query", body)
}
