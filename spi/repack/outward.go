// Package repack converts between host-width commands and fixed-width
// serialization units. The outward repackager splits a command into queue
// transfers of at most SDW serial clocks; the inward repackager reassembles
// captured fragments back into host words.
package repack

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
)

// HookPosTransfer marks one queue transfer leaving the repackager. The hook
// item is the *spi.QueueTransfer that was sent.
var HookPosTransfer = &sim.HookPos{Name: "Repack Transfer"}

// Outward splits commands into queue transfers. It accepts a command only
// when idle or when the previous command's last unit has just left, which
// allows back-to-back commands with no idle cycle in between.
type Outward struct {
	*sim.TickingComponent

	cmdIn    sim.Port
	queueOut sim.Port
	queueDst sim.RemotePort

	sdw int

	active    bool
	remaining int
	data      uint32
	cmd       *spi.Command
}

// CmdIn returns the port on which commands arrive.
func (o *Outward) CmdIn() sim.Port {
	return o.cmdIn
}

// QueueOut returns the port that emits queue transfers.
func (o *Outward) QueueOut() sim.Port {
	return o.queueOut
}

// SetQueueDestination sets the remote port that consumes the transfers.
func (o *Outward) SetQueueDestination(dst sim.RemotePort) {
	o.queueDst = dst
}

// Busy tells whether a command is being split.
func (o *Outward) Busy() bool {
	return o.active
}

// Tick emits at most one queue transfer and, once the current command is
// fully split, admits the next one.
func (o *Outward) Tick() bool {
	madeProgress := o.emitUnit()
	madeProgress = o.acceptCommand() || madeProgress

	return madeProgress
}

func (o *Outward) emitUnit() bool {
	if !o.active {
		return false
	}

	if !o.queueOut.CanSend() {
		return false
	}

	unitLen := o.sdw
	if o.remaining < unitLen {
		unitLen = o.remaining
	}
	o.remaining -= unitLen

	xfer := &spi.QueueTransfer{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: o.queueOut.AsRemote(),
			Dst: o.queueDst,
		},
		UnitLength:        unitLen,
		IsLastUnit:        o.remaining == 0,
		LastSegment:       o.cmd.LastSegment,
		Mode:              o.cmd.Mode,
		ClockEnable:       o.cmd.ClockEnable,
		SlaveSelectEnable: o.cmd.SlaveSelectEnable,
		DataOutputEnable:  o.cmd.DataOutputEnable,
		DataInputEnable:   o.cmd.DataInputEnable,
		LaneData:          spi.PackUnit(o.data, o.cmd.Mode, o.sdw),
	}

	err := o.queueOut.Send(xfer)
	if err != nil {
		// Undo the countdown; the unit is retried next cycle.
		o.remaining += unitLen
		return false
	}

	if o.NumHooks() > 0 {
		o.InvokeHook(sim.HookCtx{
			Domain: o,
			Pos:    HookPosTransfer,
			Item:   xfer,
		})
	}

	o.data = spi.ShiftAfterUnit(o.data, o.cmd.Mode, o.sdw)

	if o.remaining == 0 {
		o.active = false
	}

	return true
}

func (o *Outward) acceptCommand() bool {
	if o.active {
		return false
	}

	msg := o.cmdIn.PeekIncoming()
	if msg == nil {
		return false
	}

	cmd := msg.(*spi.Command)
	o.cmdIn.RetrieveIncoming()

	if cmd.Length <= 0 {
		// Zero-length commands are dropped, not forwarded.
		return true
	}

	o.cmd = cmd
	o.active = true
	o.remaining = cmd.Length
	o.data = cmd.Data

	return true
}

// OutwardBuilder builds outward repackagers.
type OutwardBuilder struct {
	engine      sim.Engine
	freq        sim.Freq
	sdw         int
	portBufSize int
}

// MakeOutwardBuilder returns a builder with default parameters.
func MakeOutwardBuilder() OutwardBuilder {
	return OutwardBuilder{
		sdw:         spi.DefaultSDW,
		portBufSize: 1,
	}
}

// WithEngine sets the event engine.
func (b OutwardBuilder) WithEngine(engine sim.Engine) OutwardBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the control-domain clock frequency.
func (b OutwardBuilder) WithFreq(freq sim.Freq) OutwardBuilder {
	b.freq = freq
	return b
}

// WithSDW sets the serializer data-register width.
func (b OutwardBuilder) WithSDW(sdw int) OutwardBuilder {
	b.sdw = sdw
	return b
}

// WithPortBufSize sets the buffer capacity of the ports.
func (b OutwardBuilder) WithPortBufSize(n int) OutwardBuilder {
	b.portBufSize = n
	return b
}

// Build creates the outward repackager.
func (b OutwardBuilder) Build(name string) *Outward {
	o := new(Outward)
	o.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, o)
	o.sdw = b.sdw

	o.cmdIn = sim.NewPort(o, b.portBufSize, b.portBufSize, name+".CmdIn")
	o.queueOut = sim.NewPort(o, b.portBufSize, b.portBufSize,
		name+".QueueOut")
	o.AddPort("CmdIn", o.cmdIn)
	o.AddPort("QueueOut", o.queueOut)

	return o
}
