package tesira

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/puddle/v2"
	"github.com/sony/gobreaker/v2"

	"github.com/avtools/tesira/ttp"
)

// Querier is the command surface of a Client.
type Querier interface {
	Get(ctx context.Context, target, attribute string, indexes ...uint64) (ttp.Value, error)
	Set(ctx context.Context, target, attribute string, value ttp.Value, indexes ...uint64) error
	Increment(ctx context.Context, target, attribute string, amount ttp.Value, indexes ...uint64) error
	Decrement(ctx context.Context, target, attribute string, amount ttp.Value, indexes ...uint64) error
	Toggle(ctx context.Context, target, attribute string, indexes ...uint64) error
	Send(ctx context.Context, cmd ttp.Command) (ttp.Token, error)
}

// ClientConfig holds configuration for the session pool behind a
// Client.
type ClientConfig struct {
	// Dial establishes a transport for a new pooled session.
	// Required.
	Dial func(ctx context.Context) (Transport, error)

	// MaxSessions is the maximum number of concurrent sessions.
	// Devices cap concurrent control connections, so keep this small.
	// Zero means 1.
	MaxSessions int32

	// Session configures each pooled session.
	Session Config

	// NewCircuitBreaker creates the circuit breaker guarding command
	// execution. If nil, no circuit breaker is used.
	NewCircuitBreaker func() *gobreaker.CircuitBreaker[ttp.Token]
}

// NewCircuitBreakerConfig returns a circuit breaker factory for
// ClientConfig with sensible trip settings. A -ERR reply counts as
// success: the device answered, the path is healthy.
func NewCircuitBreakerConfig(name string, maxRequests uint32, interval, timeout time.Duration) func() *gobreaker.CircuitBreaker[ttp.Token] {
	return func() *gobreaker.CircuitBreaker[ttp.Token] {
		settings := gobreaker.Settings{
			Name:        name,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
			IsSuccessful: func(err error) bool {
				if err == nil {
					return true
				}
				var deviceErr *ttp.DeviceError
				return errors.As(err, &deviceErr)
			},
		}
		return gobreaker.NewCircuitBreaker[ttp.Token](settings)
	}
}

// Client runs commands against a device over a pool of sessions.
// Each command checks out a session for exactly one round-trip, so
// the single-command-in-flight rule is never tripped by concurrent
// callers.
//
// A Client is for command traffic only. Subscriptions need a session
// that is continuously polled; use a dedicated Session for those.
type Client struct {
	pool    *puddle.Pool[*Session]
	breaker *gobreaker.CircuitBreaker[ttp.Token]
}

var _ Querier = (*Client)(nil)

// NewClient creates a client with the given configuration.
func NewClient(config ClientConfig) (*Client, error) {
	if config.Dial == nil {
		return nil, fmt.Errorf("tesira: ClientConfig.Dial is required")
	}

	maxSessions := config.MaxSessions
	if maxSessions <= 0 {
		maxSessions = 1
	}

	pool, err := puddle.NewPool(&puddle.Config[*Session]{
		Constructor: func(ctx context.Context) (*Session, error) {
			transport, err := config.Dial(ctx)
			if err != nil {
				return nil, err
			}
			return NewSession(transport, config.Session)
		},
		Destructor: func(s *Session) {
			_ = s.Close()
		},
		MaxSize: maxSessions,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{pool: pool}
	if config.NewCircuitBreaker != nil {
		c.breaker = config.NewCircuitBreaker()
	}
	return c, nil
}

// Send runs one command round-trip on a pooled session. A -ERR reply
// is returned as a *ttp.DeviceError alongside the error token.
func (c *Client) Send(ctx context.Context, cmd ttp.Command) (ttp.Token, error) {
	if c.breaker != nil {
		return c.breaker.Execute(func() (ttp.Token, error) {
			return c.sendDirect(ctx, cmd)
		})
	}
	return c.sendDirect(ctx, cmd)
}

func (c *Client) sendDirect(ctx context.Context, cmd ttp.Command) (ttp.Token, error) {
	resource, err := c.pool.Acquire(ctx)
	if err != nil {
		return ttp.Token{}, err
	}

	token, err := resource.Value().Send(cmd)
	if sessionReusable(err) {
		resource.Release()
	} else {
		resource.Destroy()
	}
	return token, err
}

// sessionReusable reports whether the session can go back to the pool
// after a command returned err. Device errors and local validation
// errors leave the connection healthy; anything else means the
// transport is suspect.
func sessionReusable(err error) bool {
	if err == nil {
		return true
	}
	var deviceErr *ttp.DeviceError
	if errors.As(err, &deviceErr) {
		return true
	}
	var illegal *ttp.IllegalValueError
	return errors.As(err, &illegal)
}

// Get reads an attribute value.
func (c *Client) Get(ctx context.Context, target, attribute string, indexes ...uint64) (ttp.Value, error) {
	token, err := c.Send(ctx, ttp.NewGet(target, attribute, indexes...))
	if err != nil {
		return ttp.Value{}, err
	}
	switch token.Type {
	case ttp.TokenValue:
		return token.Value, nil
	case ttp.TokenList:
		return ttp.List(token.List...), nil
	default:
		return ttp.Value{}, fmt.Errorf("tesira: get returned a bare %s", token.Type)
	}
}

// Set writes an attribute value.
func (c *Client) Set(ctx context.Context, target, attribute string, value ttp.Value, indexes ...uint64) error {
	_, err := c.Send(ctx, ttp.NewSet(target, attribute, value, indexes...))
	return err
}

// Increment raises an attribute by the given amount.
func (c *Client) Increment(ctx context.Context, target, attribute string, amount ttp.Value, indexes ...uint64) error {
	_, err := c.Send(ctx, ttp.NewIncrement(target, attribute, amount, indexes...))
	return err
}

// Decrement lowers an attribute by the given amount.
func (c *Client) Decrement(ctx context.Context, target, attribute string, amount ttp.Value, indexes ...uint64) error {
	_, err := c.Send(ctx, ttp.NewDecrement(target, attribute, amount, indexes...))
	return err
}

// Toggle flips a boolean attribute.
func (c *Client) Toggle(ctx context.Context, target, attribute string, indexes ...uint64) error {
	_, err := c.Send(ctx, ttp.NewToggle(target, attribute, indexes...))
	return err
}

// ListAliases asks the device for every configured block alias.
func (c *Client) ListAliases(ctx context.Context) ([]string, error) {
	token, err := c.Send(ctx, ttp.NewGetAliases())
	if err != nil {
		return nil, err
	}
	if token.Type != ttp.TokenList {
		return nil, fmt.Errorf("tesira: unexpected %s reply to alias listing", token.Type)
	}
	aliases := make([]string, 0, len(token.List))
	for _, v := range token.List {
		if v.Kind() != ttp.KindString {
			return nil, fmt.Errorf("tesira: alias listing contains a %s entry", v.Kind())
		}
		aliases = append(aliases, v.Str())
	}
	return aliases, nil
}

// PoolStats describes the state of the session pool.
type PoolStats struct {
	TotalSessions    int32
	IdleSessions     int32
	AcquiredSessions int32
	AcquireCount     int64
	CanceledAcquires int64
}

// PoolStats returns a snapshot of the session pool counters.
func (c *Client) PoolStats() PoolStats {
	s := c.pool.Stat()
	return PoolStats{
		TotalSessions:    s.TotalResources(),
		IdleSessions:     s.IdleResources(),
		AcquiredSessions: s.AcquiredResources(),
		AcquireCount:     s.AcquireCount(),
		CanceledAcquires: s.CanceledAcquireCount(),
	}
}

// Close closes the pool and every session in it. In-flight commands
// finish first; Close blocks until all sessions are returned.
func (c *Client) Close() {
	c.pool.Close()
}
