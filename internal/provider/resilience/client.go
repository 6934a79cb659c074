package resilience

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"
)

// ErrCircuitOpen is returned without touching the network while a provider's breaker is open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// ClientConfig configures a resilient directions client.
type ClientConfig struct {
	// Name is the provider name used for the breaker and the registry entry.
	Name string

	// Timeout bounds a single HTTP attempt. Default: 10s.
	Timeout time.Duration

	// MaxRetries is the number of extra attempts after a transient failure. Zero disables retries.
	MaxRetries uint64

	// InitialInterval and MaxInterval bound the exponential backoff. Defaults: 100ms and 2s.
	InitialInterval time.Duration
	MaxInterval     time.Duration

	// CircuitBreaker defaults to DefaultCircuitBreakerConfig(Name).
	CircuitBreaker *CircuitBreakerConfig

	// Registry, when set, receives the client on construction and every call outcome.
	Registry *Registry

	Logger zerolog.Logger

	// Transport overrides the underlying round tripper (tests).
	Transport http.RoundTripper
}

// DefaultClientConfig returns the settings used for the public routing APIs.
func DefaultClientConfig(name string) ClientConfig {
	cb := DefaultCircuitBreakerConfig(name)
	return ClientConfig{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		CircuitBreaker:  &cb,
		Logger:          zerolog.Nop(),
	}
}

// Client sends provider requests through a circuit breaker and retries transient failures
// (network errors, 429 and 5xx) with exponential backoff.
type Client struct {
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[*http.Response]
	cfg     ClientConfig
	logger  zerolog.Logger
}

// NewClient builds a client and registers it when cfg.Registry is set.
func NewClient(cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval <= 0 {
		cfg.MaxInterval = 2 * time.Second
	}

	logger := cfg.Logger.With().Str("provider", cfg.Name).Logger()

	cb := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.CircuitBreaker != nil {
		cb = *cfg.CircuitBreaker
	}
	if cb.OnStateChange == nil {
		cb.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state changed")
		}
	}

	c := &Client{
		http:    &http.Client{Timeout: cfg.Timeout, Transport: cfg.Transport},
		breaker: NewCircuitBreaker[*http.Response](cb), //nolint:bodyclose // type param, not response
		cfg:     cfg,
		logger:  logger,
	}
	if cfg.Registry != nil {
		cfg.Registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the provider name.
func (c *Client) Name() string { return c.cfg.Name }

// CircuitBreakerState returns the breaker's current state.
func (c *Client) CircuitBreakerState() gobreaker.State { return c.breaker.State() }

// CircuitBreakerCounts returns the breaker's current counts.
func (c *Client) CircuitBreakerCounts() gobreaker.Counts { return c.breaker.Counts() }

// Do sends req, retrying transient failures until MaxRetries is spent or the request
// context ends. A request with a body must set GetBody (http.NewRequest does for
// bytes and strings readers) so every attempt sends it in full.
//
// When retries run out on a transient status, the last response is returned with a nil
// error so the caller can map the status itself. The caller closes the body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialInterval
	exp.MaxInterval = c.cfg.MaxInterval
	exp.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(exp, c.cfg.MaxRetries), ctx)

	var last *http.Response
	keep := func(resp *http.Response) {
		if last != nil {
			last.Body.Close()
		}
		last = resp
	}

	tries := 0
	op := func() error {
		tries++
		resp, err := c.attempt(req)
		if resp != nil {
			keep(resp)
		}
		if err == nil {
			return nil
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		var se *StatusError
		if errors.As(err, &se) && se.RetryAfter > 0 {
			// Honour the upstream's hint, within our own ceiling.
			wait := min(se.RetryAfter, c.cfg.MaxInterval)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return backoff.Permanent(ctx.Err())
			}
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		c.logger.Debug().Err(err).Int("attempt", tries).Dur("backoff", next).Msg("retrying provider request")
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		c.recordFailure(err)
		if last != nil && !errors.Is(err, ErrCircuitOpen) {
			return last, nil
		}
		if last != nil {
			last.Body.Close()
		}
		return nil, err
	}

	c.recordSuccess()
	return last, nil
}

func (c *Client) attempt(req *http.Request) (*http.Response, error) {
	return c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // caller closes
		r := req.Clone(req.Context())
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.http.Do(r)
		if err != nil {
			return nil, err
		}
		if transient(resp.StatusCode) {
			return resp, &StatusError{
				StatusCode: resp.StatusCode,
				RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			}
		}
		return resp, nil
	})
}

func (c *Client) recordSuccess() {
	if c.cfg.Registry != nil {
		c.cfg.Registry.RecordSuccess(c.cfg.Name)
	}
}

func (c *Client) recordFailure(err error) {
	if c.cfg.Registry != nil {
		c.cfg.Registry.RecordFailure(c.cfg.Name, err)
	}
}

// StatusError is a transient upstream status: 429 or any 5xx. It counts against the breaker.
type StatusError struct {
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return "provider returned " + strconv.Itoa(e.StatusCode) + " " + http.StatusText(e.StatusCode)
}

func transient(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// retryAfter parses the delay-seconds form of Retry-After. HTTP dates are ignored.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
