// Package auth builds Authorization values for rest requests.
package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/amdevit/restling/rest"
)

// Schemes.
const (
	SchemeBasic  = "Basic"
	SchemeBearer = "Bearer"
)

var (
	// ErrMissingUser is returned by BasicBuilder.Build without a user name.
	ErrMissingUser = errors.New("basic authentication requires a user name")
	// ErrMissingToken is returned by Bearer for an empty token.
	ErrMissingToken = errors.New("bearer authentication requires a token")
)

// BasicBuilder builds an RFC 7617 Basic credential.
type BasicBuilder struct {
	user     string
	password string
}

// NewBasic creates a builder for user and password.
func NewBasic(user, password string) *BasicBuilder {
	return &BasicBuilder{user: user, password: password}
}

// WithUser sets the user name.
func (b *BasicBuilder) WithUser(user string) *BasicBuilder {
	b.user = user
	return b
}

// WithPassword sets the password.
func (b *BasicBuilder) WithPassword(password string) *BasicBuilder {
	b.password = password
	return b
}

// User returns the user name.
func (b *BasicBuilder) User() string {
	return b.user
}

// HasPassword reports whether a non-empty password is set.
func (b *BasicBuilder) HasPassword() bool {
	return b.password != ""
}

// PasswordHash returns the hex SHA-256 of the password. The digest is
// unsalted, so it must not be logged or stored.
func (b *BasicBuilder) PasswordHash() string {
	sum := sha256.Sum256([]byte(b.password))
	return hex.EncodeToString(sum[:])
}

// Build returns the Authorization value.
func (b *BasicBuilder) Build() (rest.AuthenticationHeader, error) {
	if strings.TrimSpace(b.user) == "" {
		return rest.AuthenticationHeader{}, ErrMissingUser
	}
	token := base64.StdEncoding.EncodeToString([]byte(b.user + ":" + b.password))
	return rest.AuthenticationHeader{Scheme: SchemeBasic, Parameter: token}, nil
}

// Bearer returns a Bearer Authorization value.
func Bearer(token string) (rest.AuthenticationHeader, error) {
	if strings.TrimSpace(token) == "" {
		return rest.AuthenticationHeader{}, ErrMissingToken
	}
	return rest.AuthenticationHeader{Scheme: SchemeBearer, Parameter: token}, nil
}

// SplitUserInfo splits "user:password". hasPassword is false when there is
// no colon.
func SplitUserInfo(userInfo string) (user, password string, hasPassword bool) {
	return strings.Cut(userInfo, ":")
}
