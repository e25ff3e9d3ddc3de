package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/amdevit/restling/internal/config"
	"github.com/amdevit/restling/internal/logging"
	"github.com/amdevit/restling/internal/stats"
	"github.com/amdevit/restling/pkg/auth"
	"github.com/amdevit/restling/pkg/cookies"
	"github.com/amdevit/restling/pkg/metrics"
	"github.com/amdevit/restling/pkg/serialization"
	"github.com/amdevit/restling/pkg/transport"
	"github.com/amdevit/restling/rest"
)

const (
	defaultTimeout  = 30 * time.Second
	jsonContentType = "application/json; charset=utf-8"
)

// session is the client side of one command invocation
type session struct {
	profile  config.Profile
	flags    *requestFlags
	logger   *zap.Logger
	client   *rest.Client
	recorder *stats.Recorder
	registry *prometheus.Registry
	store    *cookies.Store
	jar      http.CookieJar

	// readPassword prompts for the password of user
	readPassword func(user string) (string, error)
}

func newLogger(g *globalFlags, p config.Profile) (*zap.Logger, error) {
	cfg := logging.DefaultConfig()
	switch {
	case g.logLevel != "":
		cfg.Level = g.logLevel
	case p.LogLevel != "":
		cfg.Level = p.LogLevel
	}
	return logging.New(cfg)
}

func newSession(ctx context.Context, cmd *cobra.Command, f *requestFlags, p config.Profile, logger *zap.Logger) (*session, error) {
	s := &session{
		profile:  p,
		flags:    f,
		logger:   logger,
		recorder: stats.NewRecorder(),
		readPassword: func(user string) (string, error) {
			return promptPassword(cmd.ErrOrStderr(), user)
		},
	}

	lib, err := s.serializer()
	if err != nil {
		return nil, err
	}

	timeout := f.timeout
	if timeout <= 0 {
		if timeout, err = p.TimeoutDuration(defaultTimeout); err != nil {
			return nil, err
		}
	}

	if err := s.openCookies(ctx); err != nil {
		return nil, err
	}

	rps := f.rate
	if rps == 0 {
		rps = p.RateLimit
	}

	builder := transport.NewBuilder().
		WithTimeout(timeout).
		WithRateLimit(rps, 1).
		WithCookieJar(s.jar)
	if p.UserAgent != "" {
		builder.WithUserAgent(p.UserAgent)
	}
	hc, err := builder.Build()
	if err != nil {
		return nil, err
	}

	options := []rest.ClientOption{
		rest.WithHTTPClient(hc),
		rest.WithOwnedTransport(),
		rest.WithLogger(logger),
		rest.WithResolver(serialization.NewResolver(serialization.WithLogger(logger))),
		rest.WithSerializer(lib),
		rest.WithUnsafeXML(f.unsafeXML || p.UnsafeXML),
		rest.WithTiming(true),
		rest.WithRequestID(""),
		rest.WithObserver(s.recorder),
	}
	if f.metricsFile != "" {
		s.registry = prometheus.NewRegistry()
		observer, err := metrics.NewObserver(s.registry, "restling")
		if err != nil {
			return nil, err
		}
		options = append(options, rest.WithObserver(observer))
	}

	s.client = rest.NewClient(options...)
	return s, nil
}

// writeMetrics exports the collected metrics for the node exporter
// textfile collector.
func (s *session) writeMetrics() error {
	if s.registry == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(s.flags.metricsFile, s.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

func (s *session) serializer() (serialization.Library, error) {
	name := s.flags.serializer
	if name == "" {
		name = s.profile.Serializer
	}
	return serialization.ParseLibrary(name)
}

func (s *session) openCookies(ctx context.Context) error {
	path := s.flags.cookieFile
	if path == "" {
		path = s.profile.CookieFile
	}
	if path == "" {
		return nil
	}

	options := []cookies.StoreOption{cookies.WithLogger(s.logger)}
	if s.profile.CookiePassphrase != "" {
		enc, err := cookies.NewPassphraseEncrypter(s.profile.CookiePassphrase)
		if err != nil {
			return err
		}
		options = append(options, cookies.WithEncrypter(enc))
	}

	s.store = cookies.NewStore(path, options...)
	if err := s.store.Load(ctx); err != nil {
		return err
	}
	jar, err := s.store.Jar()
	if err != nil {
		return fmt.Errorf("failed to create cookie jar: %w", err)
	}
	s.jar = jar
	return nil
}

// saveCookies stores what the jar holds for uri
func (s *session) saveCookies(ctx context.Context, uri string) error {
	if s.store == nil {
		return nil
	}
	u, err := url.Parse(uri)
	if err != nil {
		return err
	}
	s.store.Capture(s.jar, u)
	return s.store.Save(ctx)
}

func (s *session) close() {
	if err := s.client.Close(); err != nil {
		s.logger.Debug("closing client failed", zap.Error(err))
	}
}

// buildRequest assembles the request for verb and rawURL from the profile
// and the flags. Flags win over the profile.
func (s *session) buildRequest(verb, rawURL string) (*rest.Request, error) {
	f, p := s.flags, s.profile

	uri, userinfo, err := normalizeURL(config.ProcessVariables(rawURL, p.Variables))
	if err != nil {
		return nil, err
	}

	var options []rest.RequestOption
	method, custom := rest.ParseMethod(verb)
	if method == rest.MethodCustom {
		options = append(options, rest.WithCustomMethod(custom))
	}
	if f.unsafeURI || p.UnsafeURI {
		options = append(options, rest.WithUnsafeURI())
	}
	if f.noLocalhost || p.NoLocalhost {
		options = append(options, rest.WithURIValidator(rest.NoLocalhost))
	}

	headers := rest.NewHeaders()
	for key, value := range config.ProcessVariablesInMap(p.Headers, p.Variables) {
		headers.Set(key, value)
	}
	for _, h := range f.headers {
		key, value, err := parseHeader(config.ProcessVariables(h, p.Variables))
		if err != nil {
			return nil, err
		}
		headers.Set(key, value)
	}
	options = append(options, rest.WithHeaders(headers))

	authHeader, err := s.authentication(userinfo)
	if err != nil {
		return nil, err
	}
	if authHeader != nil {
		options = append(options, rest.WithAuthentication(*authHeader))
	}

	bodyOptions, err := s.body()
	if err != nil {
		return nil, err
	}
	options = append(options, bodyOptions...)

	if f.accept != "" {
		options = append(options, rest.WithAccept(f.accept))
	}

	return rest.NewRequest(method, uri, options...)
}

func (s *session) body() ([]rest.RequestOption, error) {
	f := s.flags
	switch {
	case f.jsonData != "":
		if !gjson.Valid(f.jsonData) {
			return nil, fmt.Errorf("invalid --json body: not a JSON document")
		}
		contentType := f.contentType
		if contentType == "" {
			contentType = jsonContentType
		}
		return []rest.RequestOption{rest.WithRawBody([]byte(f.jsonData), contentType)}, nil

	case len(f.form) > 0:
		form, err := parseForm(f.form)
		if err != nil {
			return nil, err
		}
		return []rest.RequestOption{rest.WithForm(form)}, nil

	case f.data != "":
		contentType := f.contentType
		if contentType == "" {
			contentType = "text/plain; charset=utf-8"
		}
		return []rest.RequestOption{rest.WithRawBody([]byte(f.data), contentType)}, nil
	}
	return nil, nil
}

// authentication picks the Authorization value: --user or --bearer, then
// credentials embedded in the URL, then the profile.
func (s *session) authentication(userinfo *url.Userinfo) (*rest.AuthenticationHeader, error) {
	f, p := s.flags, s.profile

	var (
		header rest.AuthenticationHeader
		err    error
	)
	switch {
	case f.bearer != "":
		header, err = auth.Bearer(f.bearer)
	case f.user != "":
		user, password, hasPassword := auth.SplitUserInfo(f.user)
		header, err = s.basic(user, password, hasPassword)
	case userinfo != nil:
		password, hasPassword := userinfo.Password()
		header, err = s.basic(userinfo.Username(), password, hasPassword)
	case p.Auth != nil && p.Auth.Token != "":
		header, err = auth.Bearer(p.Auth.Token)
	case p.Auth != nil && p.Auth.User != "":
		header, err = s.basic(p.Auth.User, p.Auth.Password, true)
	case p.Auth != nil && p.Auth.Scheme != "":
		header = rest.AuthenticationHeader{Scheme: p.Auth.Scheme, Parameter: p.Auth.Parameter}
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &header, nil
}

func (s *session) basic(user, password string, hasPassword bool) (rest.AuthenticationHeader, error) {
	if !hasPassword {
		var err error
		if password, err = s.readPassword(user); err != nil {
			return rest.AuthenticationHeader{}, err
		}
	}
	b := auth.NewBasic(user, password)
	s.logger.Debug("using basic authentication",
		zap.String("user", b.User()),
		zap.Bool("password_set", b.HasPassword()),
	)
	return b.Build()
}

func (s *session) send(ctx context.Context, req *rest.Request) (*rest.Result, error) {
	return s.client.Execute(ctx, req)
}

// promptPassword reads a password from the terminal. Without a terminal
// the password is empty.
func promptPassword(w io.Writer, user string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	fmt.Fprintf(w, "Password for %s: ", user)
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(password), nil
}
