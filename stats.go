package tesira

import "sync/atomic"

// SessionStats contains counters for one session's activity.
// All fields are safe for concurrent access.
//
// For Prometheus integration, expose all of these as counters.
type SessionStats struct {
	CommandsSent       uint64 // Commands written to the transport
	Replies            uint64 // Reply tokens matched to a command, device errors included
	DeviceErrors       uint64 // -ERR replies
	PublishesDelivered uint64 // Publish values handed to a subscription channel
	PublishesDropped   uint64 // Publish values lost to a full or cancelled channel
	LinesDiscarded     uint64 // Non-protocol lines and publishes for unknown tags
	StrayReplies       uint64 // Reply tokens with no command outstanding
}

// sessionStatsCollector provides internal methods for updating session
// stats. Not exported - the session updates its own stats.
type sessionStatsCollector struct {
	stats *SessionStats
}

func newSessionStatsCollector() *sessionStatsCollector {
	return &sessionStatsCollector{
		stats: &SessionStats{},
	}
}

func (c *sessionStatsCollector) recordCommand() {
	atomic.AddUint64(&c.stats.CommandsSent, 1)
}

func (c *sessionStatsCollector) recordReply(deviceErr bool) {
	atomic.AddUint64(&c.stats.Replies, 1)
	if deviceErr {
		atomic.AddUint64(&c.stats.DeviceErrors, 1)
	}
}

func (c *sessionStatsCollector) recordPublish(delivered bool) {
	if delivered {
		atomic.AddUint64(&c.stats.PublishesDelivered, 1)
	} else {
		atomic.AddUint64(&c.stats.PublishesDropped, 1)
	}
}

func (c *sessionStatsCollector) recordDiscard() {
	atomic.AddUint64(&c.stats.LinesDiscarded, 1)
}

func (c *sessionStatsCollector) recordStray() {
	atomic.AddUint64(&c.stats.StrayReplies, 1)
}

func (c *sessionStatsCollector) snapshot() SessionStats {
	return SessionStats{
		CommandsSent:       atomic.LoadUint64(&c.stats.CommandsSent),
		Replies:            atomic.LoadUint64(&c.stats.Replies),
		DeviceErrors:       atomic.LoadUint64(&c.stats.DeviceErrors),
		PublishesDelivered: atomic.LoadUint64(&c.stats.PublishesDelivered),
		PublishesDropped:   atomic.LoadUint64(&c.stats.PublishesDropped),
		LinesDiscarded:     atomic.LoadUint64(&c.stats.LinesDiscarded),
		StrayReplies:       atomic.LoadUint64(&c.stats.StrayReplies),
	}
}
