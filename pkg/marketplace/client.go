// Package marketplace talks to the ShopGoodwill buyer API. It turns saved
// searches into listing queries and returns the raw listings; it does not
// know which listings are new.
package marketplace

import (
	"context"
	"errors"
	"fmt"
)

// ItemURLFormat is the canonical public url of a listing
const ItemURLFormat = "https://shopgoodwill.com/item/%s"

// ErrMalformedResponse means the marketplace answered with something that is
// not a listing result. It is not retried.
var ErrMalformedResponse = errors.New("malformed marketplace response")

// Credentials are the login details for the marketplace. An access token
// takes precedence over username and password.
type Credentials struct {
	Username    string
	Password    string
	AccessToken string
}

// Empty reports whether there is nothing to log in with
func (c Credentials) Empty() bool {
	return c.AccessToken == "" && (c.Username == "" || c.Password == "")
}

// Session is an authenticated marketplace session
type Session struct {
	Token string
}

// RawItem is a listing as returned by a search
type RawItem struct {
	ID         string
	Title      string
	Price      float64
	EndTime    string
	URL        string
	ImageURL   string
	SellerName string
}

// Client abstracts the marketplace protocol
type Client interface {
	// Authenticate establishes a session
	Authenticate(ctx context.Context, creds Credentials) (*Session, error)

	// Search runs a query and returns the listings in marketplace order
	Search(ctx context.Context, query Query, session *Session) ([]RawItem, error)
}

// ItemURL returns the canonical url for a listing id
func ItemURL(id string) string {
	return fmt.Sprintf(ItemURLFormat, id)
}
