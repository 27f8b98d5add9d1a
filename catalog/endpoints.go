package catalog

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// UserBusinesses lists the businesses of the signed-in user.
func (c *Client) UserBusinesses(ctx context.Context) ([]Business, error) {
	return fetch[[]Business](ctx, c, keyUserBusinesses, c.ttl, "/businesses", nil)
}

func (c *Client) Business(ctx context.Context, businessID int64) (Business, error) {
	return fetch[Business](ctx, c, keyBusiness(businessID), c.ttl, "/businesses/"+id(businessID), nil)
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	return fetch[[]Category](ctx, c, keyCategories, c.staticTTL, "/categories", nil)
}

func (c *Client) Currencies(ctx context.Context) ([]Currency, error) {
	return fetch[[]Currency](ctx, c, keyCurrencies, c.staticTTL, "/currencies", nil)
}

// SearchProducts finds products of a business by name. Each distinct query
// is memoized separately.
func (c *Client) SearchProducts(ctx context.Context, businessID int64, query string) ([]Product, error) {
	query = strings.TrimSpace(query)
	return fetch[[]Product](ctx, c, keyProductSearch(businessID, query), c.ttl,
		"/businesses/"+id(businessID)+"/products", url.Values{"q": {query}})
}

func (c *Client) Members(ctx context.Context, businessID int64) ([]Member, error) {
	return fetch[[]Member](ctx, c, keyMembers(businessID), c.ttl, "/businesses/"+id(businessID)+"/members", nil)
}

// CreateProduct adds a product and drops every cached search of its
// business.
func (c *Client) CreateProduct(ctx context.Context, businessID int64, p Product) (Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodPost, "/businesses/"+id(businessID)+"/products", nil, p, &out); err != nil {
		return Product{}, err
	}
	c.cache.InvalidatePattern(ctx, keyProductSearchFamily(businessID))
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, businessID, productID int64) error {
	if err := c.do(ctx, http.MethodDelete, "/businesses/"+id(businessID)+"/products/"+id(productID), nil, nil, nil); err != nil {
		return err
	}
	c.cache.InvalidatePattern(ctx, keyProductSearchFamily(businessID))
	return nil
}

func (c *Client) AddMember(ctx context.Context, businessID int64, m Member) (Member, error) {
	var out Member
	if err := c.do(ctx, http.MethodPost, "/businesses/"+id(businessID)+"/members", nil, m, &out); err != nil {
		return Member{}, err
	}
	c.cache.Invalidate(ctx, keyMembers(businessID))
	return out, nil
}

// UpdateBusiness saves b and drops both the business and the user's
// business list, which embeds it.
func (c *Client) UpdateBusiness(ctx context.Context, b Business) (Business, error) {
	var out Business
	if err := c.do(ctx, http.MethodPut, "/businesses/"+id(b.ID), nil, b, &out); err != nil {
		return Business{}, err
	}
	c.cache.Invalidate(ctx, keyBusiness(b.ID))
	c.cache.Invalidate(ctx, keyUserBusinesses)
	return out, nil
}

// Login starts a session. Everything cached belongs to the previous
// session, so the cache is cleared.
func (c *Client) Login(ctx context.Context, cred Credentials) error {
	var s session
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, cred, &s); err != nil {
		return err
	}
	c.mu.Lock()
	c.token = s.Token
	c.mu.Unlock()
	c.cache.ClearAll(ctx)
	return nil
}

// Logout ends the session and clears the cache. The local session is
// dropped even when the API call fails.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/auth/logout", nil, nil, nil)
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	c.cache.ClearAll(ctx)
	return err
}
