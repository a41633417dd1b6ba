package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/danielstefank/goodwill-alert/pkg/model"
	"github.com/gocolly/colly"
)

// DefaultBaseURL is the ShopGoodwill buyer api
const DefaultBaseURL = "https://buyerapi.shopgoodwill.com/api"

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10.15; rv:74.0) Gecko/20100101 Firefox/74.0"

const (
	loginPath  = "/SignIn/Login"
	searchPath = "/Search/ItemListing"
)

// ShopGoodwill is a Client for the ShopGoodwill buyer api
type ShopGoodwill struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
}

// ShopGoodwillOptions configures a ShopGoodwill client. Zero values fall
// back to defaults.
type ShopGoodwillOptions struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// NewShopGoodwill creates a client
func NewShopGoodwill(opts ShopGoodwillOptions) *ShopGoodwill {
	base := strings.TrimSpace(opts.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	to := opts.Timeout
	if to <= 0 {
		to = 30 * time.Second
	}
	return &ShopGoodwill{
		baseURL:   strings.TrimRight(base, "/"),
		userAgent: ua,
		timeout:   to,
	}
}

type loginRequest struct {
	UserName string `json:"userName"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginResponse struct {
	AccessToken string `json:"accessToken"`
}

// Authenticate logs in. A configured access token is used as is.
func (c *ShopGoodwill) Authenticate(ctx context.Context, creds Credentials) (*Session, error) {
	if creds.AccessToken != "" {
		return &Session{Token: creds.AccessToken}, nil
	}
	if creds.Empty() {
		return nil, fmt.Errorf("%w: no credentials", model.ErrAuthRequired)
	}

	body, err := json.Marshal(loginRequest{UserName: creds.Username, Password: creds.Password})
	if err != nil {
		return nil, fmt.Errorf("encode login: %w", err)
	}

	res, err := c.post(ctx, c.baseURL+loginPath, body, "")
	if err != nil {
		return nil, err
	}

	var login loginResponse
	if err := json.Unmarshal(res, &login); err != nil {
		return nil, fmt.Errorf("%w: login: %v", ErrMalformedResponse, err)
	}
	if login.AccessToken == "" {
		return nil, fmt.Errorf("%w: login returned no token", model.ErrAuthRequired)
	}

	return &Session{Token: login.AccessToken}, nil
}

type listingResponse struct {
	SearchResults *struct {
		Items     []listingItem `json:"items"`
		ItemCount int           `json:"itemCount"`
	} `json:"searchResults"`
}

type listingItem struct {
	ItemID       json.Number `json:"itemId"`
	Title        string      `json:"title"`
	CurrentPrice float64     `json:"currentPrice"`
	MinimumBid   float64     `json:"minimumBid"`
	EndTime      string      `json:"endTime"`
	ImageURL     string      `json:"imageURL"`
	SellerName   string      `json:"sellerName"`
}

// Search runs an item listing query. An empty item list is a valid answer;
// a body without searchResults is ErrMalformedResponse.
func (c *ShopGoodwill) Search(ctx context.Context, query Query, session *Session) ([]RawItem, error) {
	if session == nil || session.Token == "" {
		return nil, model.ErrAuthRequired
	}

	body, err := query.Encode()
	if err != nil {
		return nil, fmt.Errorf("encode query: %w", err)
	}

	res, err := c.post(ctx, c.baseURL+searchPath, body, session.Token)
	if err != nil {
		return nil, err
	}

	return parseListing(res)
}

func parseListing(body []byte) ([]RawItem, error) {
	var listing listingResponse
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if listing.SearchResults == nil {
		return nil, fmt.Errorf("%w: missing searchResults", ErrMalformedResponse)
	}

	items := make([]RawItem, 0, len(listing.SearchResults.Items))
	for _, it := range listing.SearchResults.Items {
		id := strings.TrimSpace(it.ItemID.String())
		price := it.CurrentPrice
		if price == 0 {
			price = it.MinimumBid
		}
		item := RawItem{
			ID:         id,
			Title:      strings.TrimSpace(it.Title),
			Price:      price,
			EndTime:    it.EndTime,
			ImageURL:   it.ImageURL,
			SellerName: it.SellerName,
		}
		if id != "" {
			item.URL = ItemURL(id)
		}
		items = append(items, item)
	}
	return items, nil
}

// post sends a JSON body and returns the response body
func (c *ShopGoodwill) post(ctx context.Context, url string, body []byte, token string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrTransport, err)
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	col := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.AllowURLRevisit(),
	)
	col.SetRequestTimeout(timeout)

	var (
		resBody []byte
		status  int
	)

	col.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Content-Type", "application/json")
		r.Headers.Set("Accept", "application/json")
		if token != "" {
			r.Headers.Set("Authorization", "Bearer "+token)
		}
	})

	col.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		resBody = r.Body
	})

	col.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
	})

	if err := col.PostRaw(url, body); err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, fmt.Errorf("%w: status %d", model.ErrAuthRequired, status)
		}
		return nil, fmt.Errorf("%w: %s: %v", model.ErrTransport, url, err)
	}

	return resBody, nil
}
