package cdc

// A Channel moves values from a producer timing domain to a consumer timing
// domain without races. Each side owns a gray-coded position counter; the
// other side only ever reads that counter through a two-register
// synchronizer, advanced one step per tick of the reading domain. A stale
// synchronized view can only delay visibility by a cycle, never corrupt a
// slot.
//
// The ring holds 2^counterWidth slots, one of which stays unused to tell
// full from empty. With counterWidth 1 the channel degenerates into the
// classic single-slot handshake.
//
// A Channel is not safe for concurrent use; both sides must be stepped from
// the same event engine.
type Channel struct {
	name string

	counterWidth int
	mask         uint32
	slots        []interface{}

	prodCount uint32 // binary, producer domain
	consCount uint32 // binary, consumer domain
	prodGray  uint32 // published by the producer
	consGray  uint32 // published by the consumer

	consGraySync [2]uint32 // consumer counter, synchronized into the producer domain
	prodGraySync [2]uint32 // producer counter, synchronized into the consumer domain
}

// NewChannel creates a channel with 2^counterWidth slots.
func NewChannel(name string, counterWidth int) *Channel {
	if counterWidth < 1 || counterWidth > 16 {
		panic("channel counter width must be in 1..16")
	}

	return &Channel{
		name:         name,
		counterWidth: counterWidth,
		mask:         1<<counterWidth - 1,
		slots:        make([]interface{}, 1<<counterWidth),
	}
}

// Name returns the name of the channel.
func (c *Channel) Name() string {
	return c.name
}

// SyncToProducer advances the synchronizer that carries the consumer's
// counter into the producer domain. Call once per producer-domain tick. It
// returns true if the synchronized view changed.
func (c *Channel) SyncToProducer() bool {
	changed := c.consGraySync[1] != c.consGraySync[0] ||
		c.consGraySync[0] != c.consGray

	c.consGraySync[1] = c.consGraySync[0]
	c.consGraySync[0] = c.consGray

	return changed
}

// SyncToConsumer advances the synchronizer that carries the producer's
// counter into the consumer domain. Call once per consumer-domain tick. It
// returns true if the synchronized view changed.
func (c *Channel) SyncToConsumer() bool {
	changed := c.prodGraySync[1] != c.prodGraySync[0] ||
		c.prodGraySync[0] != c.prodGray

	c.prodGraySync[1] = c.prodGraySync[0]
	c.prodGraySync[0] = c.prodGray

	return changed
}

// CanTransfer tells whether the producer sees a free slot.
func (c *Channel) CanTransfer() bool {
	next := (c.prodCount + 1) & c.mask
	return grayEncode(next) != c.consGraySync[1]
}

// Transfer stores a value and advances the producer counter. It returns
// false, leaving the value untouched, when the synchronized consumer view
// shows no free slot.
func (c *Channel) Transfer(v interface{}) bool {
	if !c.CanTransfer() {
		return false
	}

	c.slots[c.prodCount&c.mask] = v
	c.prodCount = (c.prodCount + 1) & c.mask
	c.prodGray = grayEncode(c.prodCount)

	return true
}

// CanReceive tells whether the consumer sees a pending value.
func (c *Channel) CanReceive() bool {
	return c.prodGraySync[1] != c.consGray
}

// Receive reads the next value and advances the consumer counter. The
// second return value is false when the synchronized producer view shows
// nothing pending.
func (c *Channel) Receive() (interface{}, bool) {
	if !c.CanReceive() {
		return nil, false
	}

	v := c.slots[c.consCount&c.mask]
	c.slots[c.consCount&c.mask] = nil
	c.consCount = (c.consCount + 1) & c.mask
	c.consGray = grayEncode(c.consCount)

	return v, true
}

// ClearProducer forces the producer counter onto its synchronized view of
// the consumer, abandoning any slots written but not yet consumed.
func (c *Channel) ClearProducer() {
	c.prodCount = grayDecode(c.consGraySync[1])
	c.prodGray = c.consGraySync[1]
}

// ClearConsumer forces the consumer counter onto its synchronized view of
// the producer, discarding any entries still in flight.
func (c *Channel) ClearConsumer() {
	c.consCount = grayDecode(c.prodGraySync[1])
	c.consGray = c.prodGraySync[1]
}

// Pending returns the instantaneous occupancy using both true counters. It
// ignores synchronizer lag, so it is only meaningful for inspection and
// tests, not for flow control.
func (c *Channel) Pending() int {
	return int((c.prodCount - c.consCount) & c.mask)
}
