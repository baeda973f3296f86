package tesira

import (
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/avtools/tesira/ttp"
)

// welcomeMarker identifies the greeting the device prints when a
// connection is established.
const welcomeMarker = "Welcome to the Tesira Text Protocol Server"

// defaultSubscriptionBuffer is the channel capacity of new
// subscriptions when Config.SubscriptionBuffer is zero.
const defaultSubscriptionBuffer = 16

// Config holds configuration for a session.
type Config struct {
	// Catalog validates commands built through BuildCommand.
	// If nil, the built-in default catalog is used.
	Catalog *Catalog

	// AliasTypes maps block aliases to their catalog block-type names.
	// The protocol offers no type introspection, so BuildCommand can
	// only validate aliases declared here or via RegisterAlias.
	AliasTypes map[string]string

	// SubscriptionBuffer is the channel capacity of each subscription.
	// A subscription whose channel stays full loses values and is
	// eventually dropped. Zero means a default of 16.
	SubscriptionBuffer int

	// SkipWelcomeBanner disables waiting for the device greeting at
	// session start. Useful against proxies or test doubles that do
	// not greet.
	SkipWelcomeBanner bool

	// Logger receives session events. If nil, logging is disabled.
	Logger *zerolog.Logger
}

// RoutingOutcome reports what one call to Poll did with the line it
// consumed.
type RoutingOutcome int

const (
	// OutcomeReply means a reply token was matched to the outstanding
	// command.
	OutcomeReply RoutingOutcome = iota

	// OutcomeDelivered means a publish value reached its subscription
	// channel.
	OutcomeDelivered

	// OutcomeDropped means a publish value was lost because its
	// subscription channel was full; the subscription is dead.
	OutcomeDropped

	// OutcomeDiscarded means the line was not routable: a banner or
	// echo, a malformed line, or a publish for an unknown tag.
	OutcomeDiscarded

	// OutcomeStrayReply means a reply token arrived with no command
	// outstanding.
	OutcomeStrayReply
)

func (o RoutingOutcome) String() string {
	switch o {
	case OutcomeReply:
		return "reply"
	case OutcomeDelivered:
		return "delivered"
	case OutcomeDropped:
		return "dropped"
	case OutcomeDiscarded:
		return "discarded"
	case OutcomeStrayReply:
		return "stray reply"
	default:
		return "unknown"
	}
}

type replyResult struct {
	token ttp.Token
	err   error
}

// Session owns one connection to a device: it sends commands,
// correlates replies, and fans publishes out to subscription channels.
//
// The protocol carries no request identifiers, so a session allows at
// most one command in flight; a second concurrent Send fails with
// ErrCommandInFlight. Subscription channels may be drained from any
// goroutine.
type Session struct {
	transport Transport
	catalog   *Catalog
	logger    zerolog.Logger
	buffer    int
	stats     *sessionStatsCollector

	// readMu serializes transport reads across Poll callers.
	readMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	pending chan replyResult
	subs    map[string]*Subscription
	aliases map[string]string
}

// NewSession starts a session over an established transport. Unless
// disabled in the config, it consumes lines until the device greeting
// is seen, so the caller observes connection problems here rather than
// on the first command.
func NewSession(transport Transport, config Config) (*Session, error) {
	catalog := config.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}

	buffer := config.SubscriptionBuffer
	if buffer <= 0 {
		buffer = defaultSubscriptionBuffer
	}

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	aliases := make(map[string]string, len(config.AliasTypes))
	for alias, blockType := range config.AliasTypes {
		aliases[alias] = blockType
	}

	s := &Session{
		transport: transport,
		catalog:   catalog,
		logger:    logger,
		buffer:    buffer,
		stats:     newSessionStatsCollector(),
		subs:      make(map[string]*Subscription),
		aliases:   aliases,
	}

	if !config.SkipWelcomeBanner {
		if err := s.awaitWelcome(); err != nil {
			transport.Close()
			return nil, err
		}
	}

	return s, nil
}

// awaitWelcome discards lines until the device greeting arrives.
func (s *Session) awaitWelcome() error {
	for {
		line, err := s.transport.ReadLine()
		if err != nil {
			return fmt.Errorf("tesira: waiting for device greeting: %w", err)
		}
		if strings.Contains(line, welcomeMarker) {
			s.logger.Debug().Str("banner", line).Msg("device greeting received")
			return nil
		}
		s.stats.recordDiscard()
	}
}

// Send performs one synchronous command round-trip: it serializes cmd,
// writes it, and drives Poll until the reply arrives. Publishes read
// along the way are routed to their subscriptions as usual.
//
// A -ERR reply is returned as a *DeviceError together with the error
// token. Transport failures close the session.
func (s *Session) Send(cmd ttp.Command) (ttp.Token, error) {
	line, err := ttp.EncodeCommand(cmd)
	if err != nil {
		return ttp.Token{}, err
	}

	pending := make(chan replyResult, 1)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ttp.Token{}, ErrSessionClosed
	}
	if s.pending != nil {
		s.mu.Unlock()
		return ttp.Token{}, ErrCommandInFlight
	}
	s.pending = pending
	s.mu.Unlock()

	if err := s.transport.Write(line); err != nil {
		err = fmt.Errorf("tesira: writing command: %w", err)
		s.shutdown(err)
		return ttp.Token{}, err
	}
	s.stats.recordCommand()
	s.logger.Debug().
		Str("instance", cmd.InstanceTag).
		Str("verb", string(cmd.Verb)).
		Str("attribute", cmd.Attribute).
		Msg("command sent")

	for {
		select {
		case res := <-pending:
			return res.token, res.err
		default:
		}

		if _, err := s.Poll(); err != nil {
			// shutdown already failed the pending slot; prefer that
			// result if it raced in.
			select {
			case res := <-pending:
				return res.token, res.err
			default:
				return ttp.Token{}, err
			}
		}
	}
}

// Poll consumes one line from the transport and routes it: replies to
// the outstanding Send, publishes to their subscription channels,
// everything else to the discard counter. Hosts that hold long-lived
// subscriptions call Poll in a loop to keep values flowing between
// commands.
//
// A transport failure closes the session and is returned.
func (s *Session) Poll() (RoutingOutcome, error) {
	s.readMu.Lock()
	defer s.readMu.Unlock()

	line, err := s.transport.ReadLine()
	if err != nil {
		err = fmt.Errorf("tesira: reading line: %w", err)
		s.shutdown(err)
		return OutcomeDiscarded, err
	}

	token, err := ttp.ParseLine(line)
	if err != nil {
		// Banner lines, command echoes and garbled lines are dropped;
		// each line is self-delimited so one bad line never
		// desynchronizes the next.
		s.stats.recordDiscard()
		s.logger.Debug().Str("line", line).Err(err).Msg("line discarded")
		return OutcomeDiscarded, nil
	}

	if token.Type == ttp.TokenPublish {
		return s.routePublish(token), nil
	}
	return s.routeReply(token), nil
}

// routePublish hands a publish value to its subscription, if any.
// Delivery never blocks: a full channel means the receiver stopped
// draining, and the subscription is dropped so one slow consumer
// cannot stall the session or its siblings.
func (s *Session) routePublish(token ttp.Token) RoutingOutcome {
	s.mu.Lock()
	sub, ok := s.subs[token.Tag]
	s.mu.Unlock()

	if !ok {
		s.stats.recordDiscard()
		s.logger.Debug().Str("tag", token.Tag).Msg("publish for unknown tag discarded")
		return OutcomeDiscarded
	}

	select {
	case sub.ch <- token.Value:
		s.stats.recordPublish(true)
		return OutcomeDelivered
	default:
		s.stats.recordPublish(false)
		s.logger.Warn().Str("tag", token.Tag).Msg("subscription channel full, dropping subscription")
		s.cancelSubscription(token.Tag)
		return OutcomeDropped
	}
}

// routeReply completes the outstanding Send, or counts a stray.
func (s *Session) routeReply(token ttp.Token) RoutingOutcome {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	if pending == nil {
		s.stats.recordStray()
		s.logger.Warn().Stringer("type", token.Type).Msg("reply with no command outstanding")
		return OutcomeStrayReply
	}

	res := replyResult{token: token}
	if token.Type == ttp.TokenError {
		res.err = token.Err
	}
	s.stats.recordReply(res.err != nil)
	pending <- res
	return OutcomeReply
}

// Subscribe registers a publish token and returns the subscription
// delivering its values. Registration is local: the caller separately
// sends a subscribe command carrying the same tag, usually built with
// BuildCommand or ttp.NewSubscribe. Registering before sending
// guarantees no published value is lost in between.
func (s *Session) Subscribe(tag string) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if _, exists := s.subs[tag]; exists {
		return nil, ErrDuplicateTag
	}

	sub := &Subscription{
		tag:     tag,
		ch:      make(chan ttp.Value, s.buffer),
		session: s,
	}
	s.subs[tag] = sub
	s.logger.Debug().Str("tag", tag).Msg("subscription registered")
	return sub, nil
}

// Unsubscribe removes a tag from the routing table and closes its
// channel. Later publishes for the tag are discarded. It does not
// contact the device; pair it with an unsubscribe command to stop the
// publishes at the source. Unknown tags are a no-op.
func (s *Session) Unsubscribe(tag string) {
	s.cancelSubscription(tag)
}

func (s *Session) cancelSubscription(tag string) {
	s.mu.Lock()
	sub, ok := s.subs[tag]
	if ok {
		delete(s.subs, tag)
	}
	s.mu.Unlock()

	if ok {
		close(sub.ch)
		s.logger.Debug().Str("tag", tag).Msg("subscription removed")
	}
}

// RegisterAlias declares the block type of an alias for BuildCommand.
func (s *Session) RegisterAlias(alias, blockType string) {
	s.mu.Lock()
	s.aliases[alias] = blockType
	s.mu.Unlock()
}

// BuildCommand builds a schema-validated command for a registered
// alias: the attribute indexes first, then the verb's trailing values.
func (s *Session) BuildCommand(target, attribute string, verb ttp.Verb, args ...ttp.Value) (ttp.Command, error) {
	s.mu.Lock()
	blockType, ok := s.aliases[target]
	s.mu.Unlock()
	if !ok {
		return ttp.Command{}, &UnknownAliasError{Alias: target}
	}

	return s.catalog.Builder(blockType, target).
		Attribute(attribute).
		Verb(verb).
		Args(args...).
		Build()
}

// ListAliases asks the device for every block alias configured on it.
func (s *Session) ListAliases() ([]string, error) {
	token, err := s.Send(ttp.NewGetAliases())
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

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() SessionStats {
	return s.stats.snapshot()
}

// Close tears the session down: the transport is closed, every
// subscription channel is closed, and an outstanding Send fails with
// ErrSessionClosed. Close is idempotent.
func (s *Session) Close() error {
	return s.shutdown(nil)
}

// shutdown moves the session to its terminal state. cause is the
// transport error that triggered it, nil for an orderly Close.
func (s *Session) shutdown(cause error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true

	pending := s.pending
	s.pending = nil

	subs := s.subs
	s.subs = make(map[string]*Subscription)
	s.mu.Unlock()

	if pending != nil {
		pending <- replyResult{err: ErrSessionClosed}
	}
	for _, sub := range subs {
		close(sub.ch)
	}

	err := s.transport.Close()
	if cause != nil {
		s.logger.Error().Err(cause).Msg("session closed after transport failure")
	} else {
		s.logger.Debug().Msg("session closed")
	}
	return err
}
