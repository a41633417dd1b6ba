package marketplace

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/danielstefank/goodwill-alert/pkg/model"
)

const (
	// DefaultLowPrice is sent when a search has no minimum price
	DefaultLowPrice = 0
	// UnboundedHighPrice is sent when a search has no maximum price
	UnboundedHighPrice = 999999
)

// Query is the body of an item listing search. Field names and the string
// encoded booleans and numbers are what the marketplace expects; a wrong
// name or encoding does not fail, it silently matches nothing.
type Query struct {
	IsSize                          bool   `json:"isSize"`
	IsWeddingCatagory               string `json:"isWeddingCatagory"`
	IsMultipleCategoryIds           bool   `json:"isMultipleCategoryIds"`
	IsFromHeaderMenuTab             bool   `json:"isFromHeaderMenuTab"`
	Layout                          string `json:"layout"`
	SearchText                      string `json:"searchText"`
	SelectedGroup                   string `json:"selectedGroup"`
	SelectedCategoryIds             string `json:"selectedCategoryIds"`
	SelectedSellerIds               string `json:"selectedSellerIds"`
	LowPrice                        string `json:"lowPrice"`
	HighPrice                       string `json:"highPrice"`
	SearchBuyNowOnly                string `json:"searchBuyNowOnly"`
	SearchPickupOnly                string `json:"searchPickupOnly"`
	SearchNoPickupOnly              string `json:"searchNoPickupOnly"`
	SearchOneCentShippingOnly       string `json:"searchOneCentShippingOnly"`
	SearchDescriptions              string `json:"searchDescriptions"`
	SearchClosedAuctions            string `json:"searchClosedAuctions"`
	ClosedAuctionEndingDate         string `json:"closedAuctionEndingDate"`
	ClosedAuctionDaysBack           string `json:"closedAuctionDaysBack"`
	SearchCanadaShipping            string `json:"searchCanadaShipping"`
	SearchInternationalShippingOnly string `json:"searchInternationalShippingOnly"`
	SortColumn                      string `json:"sortColumn"`
	SortDescending                  string `json:"sortDescending"`
	SavedSearchID                   int    `json:"savedSearchId"`
	UseBuyerPrefs                   string `json:"useBuyerPrefs"`
	SearchUSOnlyShipping            string `json:"searchUSOnlyShipping"`
	CategoryLevelNo                 string `json:"categoryLevelNo"`
	CategoryLevel                   int    `json:"categoryLevel"`
	CategoryID                      int    `json:"categoryId"`
	PartNumber                      string `json:"partNumber"`
	CatIds                          string `json:"catIds"`
}

// Translate maps a saved search to a marketplace query, filling defaults for
// everything the search leaves open
func Translate(search model.SavedSearch) Query {
	low := float64(DefaultLowPrice)
	if search.MinPrice != nil {
		low = *search.MinPrice
	}
	high := float64(UnboundedHighPrice)
	if search.MaxPrice != nil {
		high = *search.MaxPrice
	}

	categories := search.Categories()
	catIDs := strings.Join(categories, ",")

	return Query{
		IsSize:                          false,
		IsWeddingCatagory:               "false",
		IsMultipleCategoryIds:           len(categories) > 1,
		IsFromHeaderMenuTab:             false,
		SearchText:                      search.Keywords,
		SelectedCategoryIds:             catIDs,
		LowPrice:                        formatPrice(low),
		HighPrice:                       formatPrice(high),
		SearchPickupOnly:                formatBool(search.PickupOnly),
		SearchNoPickupOnly:              "false",
		SearchOneCentShippingOnly:       "false",
		SearchDescriptions:              "true",
		SearchClosedAuctions:            "false",
		ClosedAuctionEndingDate:         "1/1/1",
		ClosedAuctionDaysBack:           "7",
		SearchCanadaShipping:            "false",
		SearchInternationalShippingOnly: "false",
		SortColumn:                      "1",
		SortDescending:                  "false",
		UseBuyerPrefs:                   "true",
		SearchUSOnlyShipping:            "false",
		CategoryLevelNo:                 "1",
		CategoryLevel:                   1,
		CatIds:                          catIDs,
	}
}

// Encode returns the JSON request body
func (q Query) Encode() ([]byte, error) {
	return json.Marshal(q)
}

// Categories returns the category restriction, empty if there is none
func (q Query) Categories() []string {
	return model.SplitCategoryIDs(q.CatIds)
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatBool(b bool) string {
	return strconv.FormatBool(b)
}
