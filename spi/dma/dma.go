// Package dma expands bulk transfer tasks into command sequences. A task
// names a direction and a byte length; the engine slices it into
// word-sized commands that hold slave select across the whole burst.
package dma

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
)

// A StartReq kicks off a bulk transfer. For output transfers, Data supplies
// ByteLength bytes; for input transfers, Data is ignored and the captured
// words surface at the controller's word consumer.
type StartReq struct {
	sim.MsgMeta

	Direction  spi.Direction
	Mode       spi.IOMode
	ByteLength int
	Data       []byte
}

// Meta returns the meta data of the request.
func (r *StartReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *StartReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// StartReqBuilder builds start requests.
type StartReqBuilder struct {
	src, dst   sim.RemotePort
	direction  spi.Direction
	mode       spi.IOMode
	byteLength int
	data       []byte
}

// MakeStartReqBuilder returns a builder with the defaults of an output
// transfer in classic SPI mode.
func MakeStartReqBuilder() StartReqBuilder {
	return StartReqBuilder{
		direction: spi.Out,
		mode:      spi.Spi,
	}
}

// WithSrc sets the source of the request.
func (b StartReqBuilder) WithSrc(src sim.RemotePort) StartReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request.
func (b StartReqBuilder) WithDst(dst sim.RemotePort) StartReqBuilder {
	b.dst = dst
	return b
}

// WithDirection sets the transfer direction.
func (b StartReqBuilder) WithDirection(d spi.Direction) StartReqBuilder {
	b.direction = d
	return b
}

// WithMode sets the IO mode of the burst.
func (b StartReqBuilder) WithMode(mode spi.IOMode) StartReqBuilder {
	b.mode = mode
	return b
}

// WithByteLength sets the burst length in bytes.
func (b StartReqBuilder) WithByteLength(n int) StartReqBuilder {
	b.byteLength = n
	return b
}

// WithData sets the output payload.
func (b StartReqBuilder) WithData(data []byte) StartReqBuilder {
	b.data = data
	return b
}

// Build creates the request.
func (b StartReqBuilder) Build() *StartReq {
	return &StartReq{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Direction:  b.direction,
		Mode:       b.mode,
		ByteLength: b.byteLength,
		Data:       b.data,
	}
}

// Comp is the DMA command sequencer. It turns one task at a time into
// word-sized commands and reports completion once the final command is
// accepted by the arbiter.
type Comp struct {
	*sim.TickingComponent

	ctrl   sim.Port
	cmdOut sim.Port
	cmdDst sim.RemotePort

	task       *StartReq
	byteIdx    int
	pendingRsp *sim.GeneralRsp
}

// Ctrl returns the port on which tasks arrive.
func (c *Comp) Ctrl() sim.Port {
	return c.ctrl
}

// CmdOut returns the port that emits commands.
func (c *Comp) CmdOut() sim.Port {
	return c.cmdOut
}

// SetCmdDestination sets the remote port that consumes the commands.
func (c *Comp) SetCmdDestination(dst sim.RemotePort) {
	c.cmdDst = dst
}

// Busy tells whether a task is in progress.
func (c *Comp) Busy() bool {
	return c.task != nil || c.pendingRsp != nil
}

// Tick issues at most one command of the current task and admits a new
// task when idle.
func (c *Comp) Tick() bool {
	madeProgress := c.sendRsp()
	madeProgress = c.issueCommand() || madeProgress
	madeProgress = c.acceptTask() || madeProgress

	return madeProgress
}

func (c *Comp) sendRsp() bool {
	if c.pendingRsp == nil {
		return false
	}

	if c.ctrl.Send(c.pendingRsp) != nil {
		return false
	}

	c.pendingRsp = nil

	return true
}

func (c *Comp) issueCommand() bool {
	if c.task == nil {
		return false
	}

	if !c.cmdOut.CanSend() {
		return false
	}

	chunk := c.task.ByteLength - c.byteIdx
	if chunk > spi.DataWidth/8 {
		chunk = spi.DataWidth / 8
	}

	data := uint32(0)
	if c.task.Direction == spi.Out {
		for i := 0; i < chunk; i++ {
			b := byte(0)
			if c.byteIdx+i < len(c.task.Data) {
				b = c.task.Data[c.byteIdx+i]
			}
			data |= uint32(b) << (24 - 8*i)
		}
	}
	c.byteIdx += chunk

	last := c.byteIdx >= c.task.ByteLength

	cmd := spi.MakeCommandBuilder().
		WithSrc(c.cmdOut.AsRemote()).
		WithDst(c.cmdDst).
		WithDirection(c.task.Direction).
		WithLength(chunk * 8 / c.task.Mode.Lanes()).
		WithMode(c.task.Mode).
		WithDataOutputEnable(c.task.Direction == spi.Out).
		WithDataInputEnable(c.task.Direction == spi.In).
		WithLastSegment(last).
		WithData(data).
		Build()

	if c.cmdOut.Send(cmd) != nil {
		c.byteIdx -= chunk
		return false
	}

	if last {
		c.pendingRsp = sim.GeneralRspBuilder{}.
			WithSrc(c.ctrl.AsRemote()).
			WithDst(c.task.Src).
			WithOriginalReq(c.task).
			Build()
		c.task = nil
		c.byteIdx = 0
	}

	return true
}

func (c *Comp) acceptTask() bool {
	if c.task != nil || c.pendingRsp != nil {
		return false
	}

	msg := c.ctrl.PeekIncoming()
	if msg == nil {
		return false
	}

	req := msg.(*StartReq)
	c.ctrl.RetrieveIncoming()

	if req.ByteLength <= 0 {
		// Empty tasks complete immediately.
		c.pendingRsp = sim.GeneralRspBuilder{}.
			WithSrc(c.ctrl.AsRemote()).
			WithDst(req.Src).
			WithOriginalReq(req).
			Build()
		return true
	}

	c.task = req
	c.byteIdx = 0

	return true
}

// Builder builds DMA command sequencers.
type Builder struct {
	engine      sim.Engine
	freq        sim.Freq
	portBufSize int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{portBufSize: 1}
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

// WithPortBufSize sets the buffer capacity of the ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the sequencer.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.ctrl = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Ctrl")
	c.cmdOut = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".CmdOut")
	c.AddPort("Ctrl", c.ctrl)
	c.AddPort("CmdOut", c.cmdOut)

	return c
}
