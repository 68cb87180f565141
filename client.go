package rayleigh

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	lru "github.com/hashicorp/golang-lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/jatonline/rayleigh-api/config"
)

const (
	// DefaultAppID is the app identifier issued for rayleighconnect.net use.
	DefaultAppID = "uob"

	// DefaultEndpoint is the consumer API address. It should not need
	// changing if you are using rayleighconnect.net.
	DefaultEndpoint = "https://api.uxeon.com/consumer/v1"

	// DefaultTimeout bounds each request; its expiry surfaces as a
	// *TransportError.
	DefaultTimeout = 30 * time.Second

	// DefaultDiscoveryCacheSize bounds the per-client memoization of device
	// and sensor listings.
	DefaultDiscoveryCacheSize = 128
)

// ClientConfig holds the optional knobs of a Client. The zero value of
// AppID, Endpoint and Timeout means "use the default"; DiscoveryCacheSize 0
// disables listing memoization and a nil Metrics registerer disables
// instrumentation.
type ClientConfig struct {
	// AppID is the app identifier sent with every request.
	AppID string

	// Endpoint is the base address of the consumer API.
	Endpoint string

	// Timeout bounds each request including body read.
	Timeout time.Duration

	// Debug logs every request (with the access token redacted) through the
	// built-in logger. When Logger is set, its level governs instead: the
	// client writes request lines at debug level.
	Debug bool

	// Logger receives structured request logs. Leave nil for no logging
	// (or, with Debug set, for a stderr logger at debug level).
	Logger *logrus.Logger

	// HTTPClient optionally supplies the underlying HTTP client, e.g. to
	// install a recording transport in tests.
	HTTPClient *http.Client

	// DiscoveryCacheSize bounds the LRU holding device and sensor listings.
	// Data queries never use this cache.
	DiscoveryCacheSize int

	// Metrics, when set, registers a request counter and latency histogram
	// with the given registerer.
	Metrics prometheus.Registerer
}

// DefaultClientConfig returns the configuration New uses.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		AppID:              DefaultAppID,
		Endpoint:           DefaultEndpoint,
		Timeout:            DefaultTimeout,
		DiscoveryCacheSize: DefaultDiscoveryCacheSize,
	}
}

// Client makes authenticated requests to the rayleighconnect consumer API.
//
// The credentials are fixed for the lifetime of the instance and no network
// activity happens at construction; requests are only issued by the terminal
// GetData call, the discovery calls and Request. A Client is safe for
// concurrent use.
type Client struct {
	clientID    string
	accessToken string
	appID       string
	endpoint    string
	debug       bool

	http      *resty.Client
	logger    *logrus.Logger
	discovery *lru.Cache
	metrics   *clientMetrics
}

// New returns a Client for the given credentials with default configuration.
// It fails with a *ConfigurationError if either credential is empty.
func New(clientID, accessToken string) (*Client, error) {
	return NewWithConfig(clientID, accessToken, DefaultClientConfig())
}

// NewWithConfig returns a Client with explicit configuration. The client id
// is your login to the rayleighconnect.net website (likely your email
// address); the access token is issued by the vendor's token generator and
// can be recovered from its response with DecodeCredentials.
func NewWithConfig(clientID, accessToken string, cfg ClientConfig) (*Client, error) {
	if clientID == "" {
		return nil, &ConfigurationError{Reason: "client id is empty"}
	}
	if accessToken == "" {
		return nil, &ConfigurationError{Reason: "access token is empty"}
	}
	if cfg.Timeout < 0 {
		return nil, &ConfigurationError{Reason: "timeout is negative"}
	}
	if cfg.DiscoveryCacheSize < 0 {
		return nil, &ConfigurationError{Reason: "discovery cache size is negative"}
	}

	if cfg.AppID == "" {
		cfg.AppID = DefaultAppID
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if u, err := url.Parse(endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("endpoint %q is not an absolute URL", cfg.Endpoint)}
	}

	c := &Client{
		clientID:    clientID,
		accessToken: accessToken,
		appID:       cfg.AppID,
		endpoint:    endpoint,
		debug:       cfg.Debug,
		logger:      newLogger(cfg),
	}

	if cfg.HTTPClient != nil {
		c.http = resty.NewWithClient(cfg.HTTPClient)
	} else {
		c.http = resty.New()
	}
	c.http.
		SetBaseURL(endpoint).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent())

	if cfg.DiscoveryCacheSize > 0 {
		cache, err := lru.New(cfg.DiscoveryCacheSize)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("discovery cache: %v", err)}
		}
		c.discovery = cache
	}

	if cfg.Metrics != nil {
		metrics, err := newClientMetrics(cfg.Metrics)
		if err != nil {
			return nil, &ConfigurationError{Reason: fmt.Sprintf("register metrics: %v", err)}
		}
		c.metrics = metrics
	}

	return c, nil
}

// NewFromConfig builds a Client from a loaded configuration file. Split
// credentials take precedence; otherwise the encoded credential string is
// decoded. The logging section configures a logrus logger for the client.
func NewFromConfig(cfg *config.Config) (*Client, error) {
	clientID, accessToken := cfg.API.ClientID, cfg.API.AccessToken
	if clientID == "" || accessToken == "" {
		if cfg.API.Credentials == "" {
			return nil, &ConfigurationError{Reason: "config has neither split credentials nor an encoded credential string"}
		}
		var err error
		clientID, accessToken, err = DecodeCredentials(cfg.API.Credentials)
		if err != nil {
			return nil, err
		}
	}

	logger, err := newConfiguredLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}

	return NewWithConfig(clientID, accessToken, ClientConfig{
		AppID:              cfg.API.AppID,
		Endpoint:           cfg.API.Endpoint,
		Timeout:            time.Duration(cfg.API.TimeoutSeconds) * time.Second,
		Debug:              cfg.API.Debug,
		Logger:             logger,
		DiscoveryCacheSize: cfg.API.DiscoveryCacheSize,
	})
}

// ClientID returns the account the client authenticates as.
func (c *Client) ClientID() string { return c.clientID }

// newLogger resolves the client's log sink. A caller-supplied logger is used
// as-is; otherwise Debug selects between a stderr debug logger and a
// discarding one.
func newLogger(cfg ClientConfig) *logrus.Logger {
	if cfg.Logger != nil {
		return cfg.Logger
	}
	logger := logrus.New()
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetOutput(io.Discard)
	}
	return logger
}

// newConfiguredLogger builds a logger from the config file's logging section.
func newConfiguredLogger(cfg config.LoggingConfig) (*logrus.Logger, error) {
	logger := logrus.New()

	level := cfg.Level
	if level == "" {
		level = "info"
	}
	parsed, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown log level %q", cfg.Level)}
	}
	logger.SetLevel(parsed)

	switch strings.ToLower(cfg.Format) {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{})
	default:
		return nil, &ConfigurationError{Reason: fmt.Sprintf("unknown log format %q", cfg.Format)}
	}

	return logger, nil
}
