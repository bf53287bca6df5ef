// Package arbiter funnels the command streams of the register file, the XIP
// front end, and the DMA engine into the single command queue of the
// serializer pipeline.
package arbiter

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
)

// A Strategy picks which requester is granted in a cycle. It receives one
// pending flag per requester, in registration order, and the index granted
// in the previous cycle. It returns the granted index, or -1 when no grant
// is made.
type Strategy interface {
	Pick(pending []bool, last int) int
}

// FixedPriority grants the lowest-index requester with a pending command.
// The register path registers first, so software-issued commands always win
// over XIP and DMA traffic.
type FixedPriority struct{}

// Pick returns the lowest pending index.
func (FixedPriority) Pick(pending []bool, _ int) int {
	for i, p := range pending {
		if p {
			return i
		}
	}

	return -1
}

// RoundRobin grants requesters in rotating order, starting after the
// previous grant.
type RoundRobin struct{}

// Pick returns the first pending index after the previous grant.
func (RoundRobin) Pick(pending []bool, last int) int {
	n := len(pending)
	for i := 1; i <= n; i++ {
		idx := (last + i) % n
		if pending[idx] {
			return idx
		}
	}

	return -1
}

// Comp is the command arbiter. One command is granted per control clock.
type Comp struct {
	*sim.TickingComponent

	regIn sim.Port
	xipIn sim.Port
	dmaIn sim.Port
	out   sim.Port
	dst   sim.RemotePort

	strategy Strategy
	last     int
}

// RegIn returns the register file's command port.
func (c *Comp) RegIn() sim.Port {
	return c.regIn
}

// XipIn returns the XIP front end's command port.
func (c *Comp) XipIn() sim.Port {
	return c.xipIn
}

// DmaIn returns the DMA engine's command port.
func (c *Comp) DmaIn() sim.Port {
	return c.dmaIn
}

// Out returns the port that emits granted commands.
func (c *Comp) Out() sim.Port {
	return c.out
}

// SetDestination sets the remote port that consumes granted commands.
func (c *Comp) SetDestination(dst sim.RemotePort) {
	c.dst = dst
}

// Tick grants at most one pending command.
func (c *Comp) Tick() bool {
	if !c.out.CanSend() {
		return false
	}

	inPorts := []sim.Port{c.regIn, c.xipIn, c.dmaIn}

	pending := make([]bool, len(inPorts))
	for i, p := range inPorts {
		pending[i] = p.PeekIncoming() != nil
	}

	granted := c.strategy.Pick(pending, c.last)
	if granted < 0 {
		return false
	}

	cmd := inPorts[granted].PeekIncoming().(*spi.Command)
	inPorts[granted].RetrieveIncoming()

	cmd.Meta().Src = c.out.AsRemote()
	cmd.Meta().Dst = c.dst

	err := c.out.Send(cmd)
	if err != nil {
		panic("send failed after CanSend")
	}

	c.last = granted

	return true
}

// Builder builds command arbiters.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	strategy    Strategy
	portBufSize int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		strategy:    FixedPriority{},
		portBufSize: 1,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the control-domain clock frequency.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithStrategy sets the arbitration strategy.
func (b Builder) WithStrategy(s Strategy) Builder {
	b.strategy = s
	return b
}

// WithPortBufSize sets the buffer capacity of the ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the arbiter.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)
	c.strategy = b.strategy
	c.last = -1

	c.regIn = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".RegIn")
	c.xipIn = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".XipIn")
	c.dmaIn = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".DmaIn")
	c.out = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Out")
	c.AddPort("RegIn", c.regIn)
	c.AddPort("XipIn", c.xipIn)
	c.AddPort("DmaIn", c.dmaIn)
	c.AddPort("Out", c.out)

	return c
}
