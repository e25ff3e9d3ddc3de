// Package cookies keeps a persistent set of cookies and turns it into an
// http.CookieJar for the transport.
package cookies

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Cookie is one stored cookie. The jsoniter tags define the file format.
type Cookie struct {
	Name     string    `jsoniter:"name"`
	Value    string    `jsoniter:"value"`
	Domain   string    `jsoniter:"domain"`
	Path     string    `jsoniter:"path"`
	URI      string    `jsoniter:"uri"`
	Secure   bool      `jsoniter:"secure"`
	HTTPOnly bool      `jsoniter:"http_only"`
	Expires  time.Time `jsoniter:"expires"`
}

// Same reports whether c and o are the same entry: name and domain match
// ignoring case.
func (c Cookie) Same(o Cookie) bool {
	return strings.EqualFold(c.Name, o.Name) && strings.EqualFold(c.Domain, o.Domain)
}

// Expired reports whether the cookie has an expiry before now.
func (c Cookie) Expired(now time.Time) bool {
	return !c.Expires.IsZero() && c.Expires.Before(now)
}

// HTTP converts c to an *http.Cookie.
func (c Cookie) HTTP() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    c.Value,
		Domain:   c.Domain,
		Path:     c.Path,
		Secure:   c.Secure,
		HttpOnly: c.HTTPOnly,
		Expires:  c.Expires,
	}
}

// URL returns the URL the cookie is scoped to: URI when set, otherwise
// one built from Domain and Path.
func (c Cookie) URL() (*url.URL, error) {
	if c.URI != "" {
		return url.Parse(c.URI)
	}
	scheme := "http"
	if c.Secure {
		scheme = "https"
	}
	path := c.Path
	if path == "" {
		path = "/"
	}
	return &url.URL{Scheme: scheme, Host: strings.TrimPrefix(c.Domain, "."), Path: path}, nil
}

// FromHTTP converts hc received for u. Missing domain and path are taken
// from u.
func FromHTTP(u *url.URL, hc *http.Cookie) Cookie {
	c := Cookie{
		Name:     hc.Name,
		Value:    hc.Value,
		Domain:   hc.Domain,
		Path:     hc.Path,
		Secure:   hc.Secure,
		HTTPOnly: hc.HttpOnly,
		Expires:  hc.Expires,
	}
	if u != nil {
		if c.Domain == "" {
			c.Domain = u.Hostname()
		}
		if c.Path == "" {
			c.Path = "/"
		}
		c.URI = (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: c.Path}).String()
	}
	return c
}
