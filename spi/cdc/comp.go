package cdc

import (
	"github.com/sockitlab/spisim/sim"
)

// ProducerSide is the half of a cross-domain channel that lives in the
// producing timing domain. It drains its input port into the channel as
// long as the synchronized consumer view shows free slots.
type ProducerSide struct {
	*sim.TickingComponent

	ch   *Channel
	peer *ConsumerSide

	in sim.Port
}

// In returns the port on which the producer side accepts messages.
func (p *ProducerSide) In() sim.Port {
	return p.in
}

// Channel returns the underlying channel.
func (p *ProducerSide) Channel() *Channel {
	return p.ch
}

// Clear abandons all slots written but not yet consumed.
func (p *ProducerSide) Clear() {
	p.ch.ClearProducer()
}

// Tick advances the synchronizer and moves at most one message into the
// channel.
func (p *ProducerSide) Tick() bool {
	madeProgress := p.ch.SyncToProducer()

	msg := p.in.PeekIncoming()
	if msg == nil {
		return madeProgress
	}

	if !p.ch.Transfer(msg) {
		return madeProgress
	}

	p.in.RetrieveIncoming()

	// The other domain's clock keeps running in hardware; restart its
	// ticking so the synchronizers settle and the value becomes visible.
	p.peer.TickLater()

	return true
}

// ConsumerSide is the half of a cross-domain channel that lives in the
// consuming timing domain. It forwards received values to a destination
// port.
type ConsumerSide struct {
	*sim.TickingComponent

	ch   *Channel
	peer *ProducerSide

	out sim.Port
	dst sim.RemotePort
}

// Out returns the port from which the consumer side sends messages.
func (c *ConsumerSide) Out() sim.Port {
	return c.out
}

// SetDestination sets the remote port that receives the forwarded values.
func (c *ConsumerSide) SetDestination(dst sim.RemotePort) {
	c.dst = dst
}

// Channel returns the underlying channel.
func (c *ConsumerSide) Channel() *Channel {
	return c.ch
}

// Clear discards all entries still in flight.
func (c *ConsumerSide) Clear() {
	c.ch.ClearConsumer()
}

// Tick advances the synchronizer and forwards at most one value.
func (c *ConsumerSide) Tick() bool {
	madeProgress := c.ch.SyncToConsumer()

	if !c.ch.CanReceive() {
		return madeProgress
	}

	if !c.out.CanSend() {
		return madeProgress
	}

	v, ok := c.ch.Receive()
	if !ok {
		return madeProgress
	}

	msg := v.(sim.Msg)
	msg.Meta().Src = c.out.AsRemote()
	msg.Meta().Dst = c.dst

	err := c.out.Send(msg)
	if err != nil {
		panic("send failed after CanSend reported room")
	}

	c.peer.TickLater()

	return true
}

// Builder builds the two sides of a cross-domain channel.
type Builder struct {
	engine       sim.Engine
	producerFreq sim.Freq
	consumerFreq sim.Freq
	counterWidth int
	portBufSize  int
}

// MakeBuilder returns a builder with the single-slot handshake default.
func MakeBuilder() Builder {
	return Builder{
		counterWidth: 1,
		portBufSize:  1,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithProducerFreq sets the clock frequency of the producing domain.
func (b Builder) WithProducerFreq(freq sim.Freq) Builder {
	b.producerFreq = freq
	return b
}

// WithConsumerFreq sets the clock frequency of the consuming domain.
func (b Builder) WithConsumerFreq(freq sim.Freq) Builder {
	b.consumerFreq = freq
	return b
}

// WithCounterWidth sets the gray counter width. The channel holds
// 2^counterWidth slots.
func (b Builder) WithCounterWidth(w int) Builder {
	b.counterWidth = w
	return b
}

// WithPortBufSize sets the buffer capacity of the endpoint ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the channel and its two endpoints.
func (b Builder) Build(name string) (*ProducerSide, *ConsumerSide) {
	ch := NewChannel(name, b.counterWidth)

	p := new(ProducerSide)
	p.TickingComponent = sim.NewTickingComponent(
		name+".Producer", b.engine, b.producerFreq, p)
	p.ch = ch
	p.in = sim.NewPort(p, b.portBufSize, b.portBufSize,
		name+".Producer.In")
	p.AddPort("In", p.in)

	c := new(ConsumerSide)
	c.TickingComponent = sim.NewTickingComponent(
		name+".Consumer", b.engine, b.consumerFreq, c)
	c.ch = ch
	c.out = sim.NewPort(c, b.portBufSize, b.portBufSize,
		name+".Consumer.Out")
	c.AddPort("Out", c.out)

	p.peer = c
	c.peer = p

	return p, c
}
