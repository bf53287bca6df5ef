// Package serdes implements the serializer/deserializer state machine: per
// serial clock edge, it shifts the output registers onto the IO lanes,
// samples the input lanes into the input registers, counts down the unit
// length, and reports cycle completion.
package serdes

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
)

// HookPosEdge marks one serial clock edge. The hook item is the PinState
// driven at that edge.
var HookPosEdge = &sim.HookPos{Name: "SerDes Edge"}

// Comp is the serializer/deserializer. It ticks in the serial timing
// domain, one active clock edge per tick.
type Comp struct {
	*sim.TickingComponent

	queueIn sim.Port
	fragOut sim.Port
	fragDst sim.RemotePort

	wire Wire

	sdw       int
	cpol      bool
	cpha      bool
	driveClk  bool
	driveSS  bool
	ssMask   uint32

	running   bool
	bitCnt    int
	unitLen   int
	mode      spi.IOMode
	outEn     [spi.MaxLanes]bool
	inEn      bool
	clkEn     bool
	ssActive  bool
	lastUnit  bool
	lastSeg   bool
	sclkPhase bool

	shiftOut [spi.MaxLanes]uint32
	shiftIn  [spi.MaxLanes]uint32

	firstWord   bool
	ssSampled   bool
	pendingFrag *spi.Fragment
}

// QueueIn returns the port on which queue transfers arrive.
func (c *Comp) QueueIn() sim.Port {
	return c.queueIn
}

// FragOut returns the port that emits captured input fragments.
func (c *Comp) FragOut() sim.Port {
	return c.fragOut
}

// SetFragDestination sets the remote port that consumes the fragments.
func (c *Comp) SetFragDestination(dst sim.RemotePort) {
	c.fragDst = dst
}

// Running tells whether a serialization cycle is in progress.
func (c *Comp) Running() bool {
	return c.running
}

// Tick advances the state machine by one active clock edge.
func (c *Comp) Tick() bool {
	// Slave select deassertion observed on the input loopback resets
	// the first-word framing. This guard runs before the synchronous
	// step, standing in for the hardware's asynchronous reset.
	if !c.ssSampled {
		c.firstWord = true
	}

	madeProgress := c.flushFragment()

	if c.running {
		c.stepEdge()
		madeProgress = true

		if c.bitCnt == 0 {
			c.completeUnit()
			c.running = false
		}
	}

	if !c.running && c.pendingFrag == nil {
		madeProgress = c.loadTransfer() || madeProgress
	}

	return madeProgress
}

// stepEdge drives the output lanes, samples the input lanes, and counts
// down one edge.
func (c *Comp) stepEdge() {
	state := PinState{
		SclkOut:    c.cpol != (c.clkEn && c.sclkPhase != c.cpha),
		SclkEnable: c.driveClk,
	}

	if c.clkEn {
		c.sclkPhase = !c.sclkPhase
	}

	for i := 0; i < spi.MaxLanes; i++ {
		if !c.outEn[i] {
			continue
		}

		state.DataOut[i] = (c.shiftOut[i]>>(c.sdw-1))&1 == 1
		state.DataEnable[i] = true
		c.shiftOut[i] = c.shiftOut[i] << 1 & (1<<c.sdw - 1)
	}

	if c.ssActive {
		state.SlaveSelect = c.ssMask
	}
	if c.driveSS {
		state.SlaveSelectEnable = c.ssMask
	}

	if c.NumHooks() > 0 {
		c.InvokeHook(sim.HookCtx{
			Domain: c,
			Pos:    HookPosEdge,
			Item:   state,
		})
	}

	sample := c.wire.Step(state)
	c.ssSampled = sample.SlaveSelect

	if c.inEn {
		for lane := 0; lane < c.mode.Lanes(); lane++ {
			bit := uint32(0)
			if sample.Data[inputPin(c.mode, lane)] {
				bit = 1
			}
			c.shiftIn[lane] = c.shiftIn[lane]<<1 | bit
		}
	}

	c.bitCnt--
}

// completeUnit captures the input shift registers into a fragment and
// releases slave select at the end of the frame.
func (c *Comp) completeUnit() {
	if c.inEn {
		frag := &spi.Fragment{
			MsgMeta: sim.MsgMeta{
				ID:  sim.GetIDGenerator().Generate(),
				Src: c.fragOut.AsRemote(),
				Dst: c.fragDst,
			},
			UnitLength:  c.unitLen,
			IsFirstWord: c.firstWord,
			IsLastUnit:  c.lastUnit,
			LastSegment: c.lastSeg,
			Mode:        c.mode,
			LaneData:    c.shiftIn,
		}
		c.firstWord = false

		c.pendingFrag = frag
		c.flushFragment()
	}

	if c.lastUnit && c.lastSeg {
		c.ssActive = false

		// A master releases slave select itself; no further edge will
		// sample the deassertion, so record it here.
		if c.driveSS {
			c.ssSampled = false
		}
	}
}

func (c *Comp) flushFragment() bool {
	if c.pendingFrag == nil {
		return false
	}

	if !c.fragOut.CanSend() {
		return false
	}

	err := c.fragOut.Send(c.pendingFrag)
	if err != nil {
		return false
	}

	c.pendingFrag = nil

	return true
}

// loadTransfer atomically loads the cycle state from the next queue
// transfer. Loading on the same tick the previous counter reached zero
// keeps back-to-back cycles gapless.
func (c *Comp) loadTransfer() bool {
	msg := c.queueIn.PeekIncoming()
	if msg == nil {
		return false
	}

	xfer := msg.(*spi.QueueTransfer)
	c.queueIn.RetrieveIncoming()

	c.running = true
	c.bitCnt = xfer.UnitLength
	c.unitLen = xfer.UnitLength
	c.mode = xfer.Mode
	c.clkEn = xfer.ClockEnable
	c.inEn = xfer.DataInputEnable
	c.lastUnit = xfer.IsLastUnit
	c.lastSeg = xfer.LastSegment

	for i := 0; i < spi.MaxLanes; i++ {
		c.outEn[i] = xfer.DataOutputEnable && i < xfer.Mode.Lanes()
		c.shiftOut[i] = xfer.LaneData[i] & (1<<c.sdw - 1)
		c.shiftIn[i] = 0
	}

	if xfer.SlaveSelectEnable {
		c.ssActive = true
	}

	return true
}

// inputPin maps a logical input lane to a physical pin. In classic SPI the
// master transmits on pin 0 and receives on pin 1; in 3-wire both
// directions share pin 0; dual and quad sample the lanes they drive.
func inputPin(mode spi.IOMode, lane int) int {
	if mode == spi.Spi && lane == 0 {
		return 1
	}

	return lane
}

// Builder builds serializer/deserializers.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	sdw         int
	cpol        bool
	cpha        bool
	ssMask      uint32
	driveClock  bool
	driveSS     bool
	wire        Wire
	portBufSize int
}

// MakeBuilder returns a builder with default parameters. The default
// configuration drives the clock and slave select line 0, which is the
// master role.
func MakeBuilder() Builder {
	return Builder{
		sdw:         spi.DefaultSDW,
		ssMask:      1,
		driveClock:  true,
		driveSS:     true,
		portBufSize: 1,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithFreq sets the serial timing domain frequency. One tick is one full
// serial clock cycle.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithSDW sets the serializer data-register width.
func (b Builder) WithSDW(sdw int) Builder {
	b.sdw = sdw
	return b
}

// WithClockPolarity sets the idle level of the serial clock.
func (b Builder) WithClockPolarity(cpol bool) Builder {
	b.cpol = cpol
	return b
}

// WithClockPhase shifts the active clock edge by half a cycle.
func (b Builder) WithClockPhase(cpha bool) Builder {
	b.cpha = cpha
	return b
}

// WithSlaveSelectMask sets the slave select lines asserted for the
// component's transfers.
func (b Builder) WithSlaveSelectMask(mask uint32) Builder {
	b.ssMask = mask
	return b
}

// WithClockDriven sets whether the component drives the serial clock.
// Slaves do not.
func (b Builder) WithClockDriven(drive bool) Builder {
	b.driveClock = drive
	return b
}

// WithSlaveSelectDriven sets whether the component drives the slave
// select lines. Slaves do not.
func (b Builder) WithSlaveSelectDriven(drive bool) Builder {
	b.driveSS = drive
	return b
}

// WithWire sets the pin-level transport.
func (b Builder) WithWire(w Wire) Builder {
	b.wire = w
	return b
}

// WithPortBufSize sets the buffer capacity of the ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the serializer/deserializer.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.wire = b.wire
	if c.wire == nil {
		c.wire = NewLoopback()
	}

	c.sdw = b.sdw
	c.cpol = b.cpol
	c.cpha = b.cpha
	c.ssMask = b.ssMask
	c.driveClk = b.driveClock
	c.driveSS = b.driveSS
	c.firstWord = true

	c.queueIn = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".QueueIn")
	c.fragOut = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".FragOut")
	c.AddPort("QueueIn", c.queueIn)
	c.AddPort("FragOut", c.fragOut)

	return c
}
