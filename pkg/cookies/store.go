package cookies

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"

	"github.com/amdevit/restling/pkg/serialization"
)

// Encrypter protects the cookie file contents.
type Encrypter interface {
	Encrypt(plaintext []byte) ([]byte, error)
	Decrypt(ciphertext []byte) ([]byte, error)
}

type document struct {
	Version int      `jsoniter:"version"`
	Cookies []Cookie `jsoniter:"cookies"`
}

const documentVersion = 1

// Store is a file-backed cookie set. It is safe for concurrent use.
type Store struct {
	mu        sync.Mutex
	path      string
	encrypter Encrypter
	resolver  *serialization.Resolver
	logger    *zap.Logger
	cookies   []Cookie
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithEncrypter encrypts the file with e.
func WithEncrypter(e Encrypter) StoreOption {
	return func(s *Store) {
		s.encrypter = e
	}
}

// WithResolver sets the serializer resolver used for the file.
func WithResolver(r *serialization.Resolver) StoreOption {
	return func(s *Store) {
		s.resolver = r
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewStore creates a store persisted at path.
func NewStore(path string, options ...StoreOption) *Store {
	s := &Store{
		path:   path,
		logger: zap.NewNop(),
	}
	for _, option := range options {
		option(s)
	}
	if s.resolver == nil {
		s.resolver = serialization.NewResolver(serialization.WithLogger(s.logger))
	}
	return s
}

// Path returns the file path.
func (s *Store) Path() string {
	return s.path
}

// Load replaces the in-memory set with the file contents. A missing or
// blank file yields an empty set.
func (s *Store) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to read cookie file: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		s.mu.Lock()
		s.cookies = nil
		s.mu.Unlock()
		return nil
	}

	if s.encrypter != nil {
		data, err = s.encrypter.Decrypt(data)
		if err != nil {
			return fmt.Errorf("failed to decrypt cookie file: %w", err)
		}
	}

	var doc document
	if err := s.resolver.DeserializeInto(string(data), &doc, serialization.Automatic); err != nil {
		return fmt.Errorf("failed to parse cookie file: %w", err)
	}

	s.mu.Lock()
	s.cookies = nil
	for _, c := range doc.Cookies {
		s.addLocked(c)
	}
	n := len(s.cookies)
	s.mu.Unlock()

	s.logger.Debug("cookies loaded", zap.String("path", s.path), zap.Int("count", n))
	return nil
}

// Save writes the set to the file, creating parent directories.
func (s *Store) Save(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	doc := document{Version: documentVersion, Cookies: s.All()}
	text, err := s.resolver.Serialize(doc, serialization.Automatic)
	if err != nil {
		return fmt.Errorf("failed to encode cookies: %w", err)
	}

	data := []byte(text)
	if s.encrypter != nil {
		data, err = s.encrypter.Encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt cookie file: %w", err)
		}
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create cookie directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write cookie file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace cookie file: %w", err)
	}

	s.logger.Debug("cookies saved", zap.String("path", s.path), zap.Int("count", len(doc.Cookies)))
	return nil
}

// Add inserts c, replacing an existing entry with the same name and domain.
func (s *Store) Add(c Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(c)
}

func (s *Store) addLocked(c Cookie) {
	for i := range s.cookies {
		if s.cookies[i].Same(c) {
			s.cookies[i] = c
			return
		}
	}
	s.cookies = append(s.cookies, c)
}

// Remove deletes the entry matching name and domain.
func (s *Store) Remove(name, domain string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	target := Cookie{Name: name, Domain: domain}
	for i := range s.cookies {
		if s.cookies[i].Same(target) {
			s.cookies = append(s.cookies[:i], s.cookies[i+1:]...)
			return true
		}
	}
	return false
}

// All returns a copy of the stored cookies in insertion order.
func (s *Store) All() []Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Cookie(nil), s.cookies...)
}

// Len returns the number of stored cookies.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cookies)
}

// Jar builds a cookie jar seeded with the unexpired stored cookies.
func (s *Store) Jar() (http.CookieJar, error) {
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, c := range s.All() {
		if c.Expired(now) {
			continue
		}
		u, err := c.URL()
		if err != nil {
			s.logger.Warn("skipping cookie with invalid uri",
				zap.String("name", c.Name),
				zap.String("uri", c.URI),
				zap.Error(err),
			)
			continue
		}
		jar.SetCookies(u, []*http.Cookie{c.HTTP()})
	}
	return jar, nil
}

// Capture copies the cookies jar holds for each of urls into the store.
func (s *Store) Capture(jar http.CookieJar, urls ...*url.URL) {
	for _, u := range urls {
		for _, hc := range jar.Cookies(u) {
			s.Add(FromHTTP(u, hc))
		}
	}
}
