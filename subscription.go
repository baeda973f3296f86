package tesira

import (
	"github.com/avtools/tesira/ttp"
)

// Subscription is one registered publish token and the channel its
// values are delivered on.
//
// The channel is closed when the subscription ends: after Cancel,
// after the session closes, or after the engine drops it because the
// receiver stopped draining the channel. Receivers should range over C
// and treat channel closure as the end of the stream.
type Subscription struct {
	tag     string
	ch      chan ttp.Value
	session *Session
}

// Tag returns the publish token this subscription is registered under.
func (s *Subscription) Tag() string {
	return s.tag
}

// C returns the delivery channel. Values arrive in the order the
// device published them.
func (s *Subscription) C() <-chan ttp.Value {
	return s.ch
}

// Cancel removes the subscription from the session's routing table and
// closes the channel. It does not contact the device; callers that
// want the device to stop publishing send an unsubscribe command
// first. Cancel is idempotent.
func (s *Subscription) Cancel() {
	s.session.cancelSubscription(s.tag)
}
