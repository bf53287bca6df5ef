// Package regfile implements the memory-mapped control surface of the
// controller: eight 32-bit registers decoded into commands, DMA task
// starts, and XIP address offsets. The serializer pipeline itself never
// sees a register, only the already-decoded commands.
package regfile

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/dma"
	"github.com/sockitlab/spisim/spi/xip"
)

// Register addresses, in 32-bit words.
const (
	RegCfg = iota
	RegParam
	RegCtl
	RegData
	RegIrq
	RegDma
	RegRdOff
	RegWrOff

	NumRegs
)

// Configuration register fields.
const (
	CfgModeMask  = 0x3
	CfgPolarity  = 1 << 2
	CfgPhase     = 1 << 3
	CfgSSMaskPos = 8
)

// Control register fields. Reads of the control register return status
// instead.
const (
	CtlLengthMask        = 0x3F
	CtlDirectionIn       = 1 << 8
	CtlModePos           = 9
	CtlClockEnable       = 1 << 12
	CtlSlaveSelectEnable = 1 << 13
	CtlOutputEnable      = 1 << 14
	CtlInputEnable       = 1 << 15
	CtlLastSegment       = 1 << 16
	CtlStart             = 1 << 31
)

// Status fields, read back through the control register address.
const (
	StatusCmdBusy = 1 << 0
	StatusRxReady = 1 << 1
	StatusDmaBusy = 1 << 2
)

// Interrupt register fields. Writing a set bit clears it.
const (
	IrqRxPending = 1 << 0
)

// DMA register fields.
const (
	DmaByteLengthMask = 0xFFFFFF
	DmaDirectionIn    = 1 << 30
	DmaStart          = 1 << 31
)

// Parameterization register layout, read-only.
const (
	ParamSDWPos = 0
	ParamCWPos  = 8
	ParamSSWPos = 16
)

// Comp is the register file. It processes one bus request per control
// clock and never blocks the bus on the serial pipeline: command issue is
// decoupled through the busy status bit.
type Comp struct {
	*sim.TickingComponent

	top    sim.Port
	cmdOut sim.Port
	wordIn sim.Port
	dmaCtl sim.Port
	xipCfg sim.Port

	cmdDst sim.RemotePort
	dmaDst sim.RemotePort
	xipDst sim.RemotePort

	param uint32

	cfg    uint32
	dmaCfg uint32
	rdOff  uint32
	wrOff  uint32

	txData uint32
	rxData uint32

	irqPending uint32
	dmaBusy    bool

	pendingRsp sim.Msg
	pendingCmd *spi.Command
	pendingDma *dma.StartReq
	pendingXip *xip.SetOffsetReq
}

// Top returns the bus-facing port.
func (c *Comp) Top() sim.Port {
	return c.top
}

// CmdOut returns the port that emits decoded commands.
func (c *Comp) CmdOut() sim.Port {
	return c.cmdOut
}

// WordIn returns the port on which captured words arrive.
func (c *Comp) WordIn() sim.Port {
	return c.wordIn
}

// DmaCtl returns the port toward the DMA sequencer.
func (c *Comp) DmaCtl() sim.Port {
	return c.dmaCtl
}

// XipCfg returns the port toward the XIP front end.
func (c *Comp) XipCfg() sim.Port {
	return c.xipCfg
}

// SetCmdDestination sets the remote port that consumes commands.
func (c *Comp) SetCmdDestination(dst sim.RemotePort) {
	c.cmdDst = dst
}

// SetDmaDestination sets the DMA sequencer's control port.
func (c *Comp) SetDmaDestination(dst sim.RemotePort) {
	c.dmaDst = dst
}

// SetXipDestination sets the XIP front end's control port.
func (c *Comp) SetXipDestination(dst sim.RemotePort) {
	c.xipDst = dst
}

// Tick drains pending outputs, absorbs words and DMA completions, and
// processes one bus request.
func (c *Comp) Tick() bool {
	madeProgress := c.sendPending()
	madeProgress = c.absorbWord() || madeProgress
	madeProgress = c.absorbDmaDone() || madeProgress
	madeProgress = c.processBusReq() || madeProgress

	return madeProgress
}

func (c *Comp) sendPending() bool {
	madeProgress := false

	if c.pendingRsp != nil && c.top.Send(c.pendingRsp) == nil {
		c.pendingRsp = nil
		madeProgress = true
	}

	if c.pendingCmd != nil && c.cmdOut.Send(c.pendingCmd) == nil {
		c.pendingCmd = nil
		madeProgress = true
	}

	if c.pendingDma != nil && c.dmaCtl.Send(c.pendingDma) == nil {
		c.pendingDma = nil
		madeProgress = true
	}

	if c.pendingXip != nil && c.xipCfg.Send(c.pendingXip) == nil {
		c.pendingXip = nil
		madeProgress = true
	}

	return madeProgress
}

func (c *Comp) absorbWord() bool {
	msg := c.wordIn.PeekIncoming()
	if msg == nil {
		return false
	}

	word := msg.(*spi.WordIn)
	c.wordIn.RetrieveIncoming()

	c.rxData = word.Data
	c.irqPending |= IrqRxPending

	return true
}

func (c *Comp) absorbDmaDone() bool {
	msg := c.dmaCtl.PeekIncoming()
	if msg == nil {
		return false
	}

	c.dmaCtl.RetrieveIncoming()
	c.dmaBusy = false

	return true
}

func (c *Comp) processBusReq() bool {
	if c.pendingRsp != nil {
		return false
	}

	msg := c.top.PeekIncoming()
	if msg == nil {
		return false
	}

	switch req := msg.(type) {
	case *RegReadReq:
		c.top.RetrieveIncoming()
		c.pendingRsp = &RegReadRsp{
			MsgMeta: sim.MsgMeta{
				ID:  sim.GetIDGenerator().Generate(),
				Src: c.top.AsRemote(),
				Dst: req.Src,
			},
			RespondTo: req.ID,
			Data:      c.readReg(req.Addr),
		}
	case *RegWriteReq:
		// A control or DMA start needs a free output slot; hold the
		// request until the previous one drains.
		if !c.writeReady(req) {
			return false
		}

		c.top.RetrieveIncoming()
		c.writeReg(req.Addr, req.Data)
		c.pendingRsp = sim.GeneralRspBuilder{}.
			WithSrc(c.top.AsRemote()).
			WithDst(req.Src).
			WithOriginalReq(req).
			Build()
	default:
		panic("unknown request type on the register bus")
	}

	return true
}

func (c *Comp) writeReady(req *RegWriteReq) bool {
	switch req.Addr {
	case RegCtl:
		return c.pendingCmd == nil
	case RegDma:
		return c.pendingDma == nil
	case RegRdOff, RegWrOff:
		return c.pendingXip == nil
	}

	return true
}

func (c *Comp) readReg(addr int) uint32 {
	switch addr {
	case RegCfg:
		return c.cfg
	case RegParam:
		return c.param
	case RegCtl:
		return c.status()
	case RegData:
		return c.rxData
	case RegIrq:
		return c.irqPending
	case RegDma:
		status := c.dmaCfg &^ DmaStart
		if c.dmaBusy {
			status |= DmaStart
		}
		return status
	case RegRdOff:
		return c.rdOff
	case RegWrOff:
		return c.wrOff
	}

	return 0
}

func (c *Comp) status() uint32 {
	s := uint32(0)
	if c.pendingCmd != nil {
		s |= StatusCmdBusy
	}
	if c.irqPending&IrqRxPending != 0 {
		s |= StatusRxReady
	}
	if c.dmaBusy {
		s |= StatusDmaBusy
	}

	return s
}

func (c *Comp) writeReg(addr int, data uint32) {
	switch addr {
	case RegCfg:
		c.cfg = data
	case RegParam:
		// Read-only.
	case RegCtl:
		if data&CtlStart != 0 {
			c.pendingCmd = c.decodeCommand(data)
		}
	case RegData:
		c.txData = data
	case RegIrq:
		c.irqPending &^= data
	case RegDma:
		c.dmaCfg = data &^ DmaStart
		if data&DmaStart != 0 {
			c.pendingDma = c.decodeDmaTask(data)
			c.dmaBusy = true
		}
	case RegRdOff:
		c.rdOff = data
		c.pendingXip = c.offsetUpdate()
	case RegWrOff:
		c.wrOff = data
		c.pendingXip = c.offsetUpdate()
	}
}

func (c *Comp) decodeCommand(ctl uint32) *spi.Command {
	dir := spi.Out
	if ctl&CtlDirectionIn != 0 {
		dir = spi.In
	}

	// The length field encodes 1..32 clocks in 6 bits; 0 means 32.
	length := int(ctl & CtlLengthMask)
	if length == 0 {
		length = spi.DataWidth
	}

	return spi.MakeCommandBuilder().
		WithSrc(c.cmdOut.AsRemote()).
		WithDst(c.cmdDst).
		WithDirection(dir).
		WithLength(length).
		WithMode(spi.IOMode(ctl >> CtlModePos & 0x3)).
		WithClockEnable(ctl&CtlClockEnable != 0).
		WithSlaveSelectEnable(ctl&CtlSlaveSelectEnable != 0).
		WithDataOutputEnable(ctl&CtlOutputEnable != 0).
		WithDataInputEnable(ctl&CtlInputEnable != 0).
		WithLastSegment(ctl&CtlLastSegment != 0).
		WithData(c.txData).
		Build()
}

func (c *Comp) decodeDmaTask(ctl uint32) *dma.StartReq {
	dir := spi.Out
	if ctl&DmaDirectionIn != 0 {
		dir = spi.In
	}

	// DMA memory fetch is not modeled; output bursts carry zeros.
	return dma.MakeStartReqBuilder().
		WithSrc(c.dmaCtl.AsRemote()).
		WithDst(c.dmaDst).
		WithDirection(dir).
		WithMode(spi.IOMode(c.cfg & CfgModeMask)).
		WithByteLength(int(ctl & DmaByteLengthMask)).
		Build()
}

func (c *Comp) offsetUpdate() *xip.SetOffsetReq {
	return &xip.SetOffsetReq{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: c.xipCfg.AsRemote(),
			Dst: c.xipDst,
		},
		ReadOffset:  c.rdOff,
		WriteOffset: c.wrOff,
	}
}

// Builder builds register files.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	sdw          int
	counterWidth int
	numSS        int
	portBufSize  int
}

// MakeBuilder returns a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		sdw:          spi.DefaultSDW,
		counterWidth: 1,
		numSS:        1,
		portBufSize:  1,
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

// WithSDW sets the serializer data-register width reported by the
// parameterization register.
func (b Builder) WithSDW(sdw int) Builder {
	b.sdw = sdw
	return b
}

// WithCounterWidth sets the queue counter width reported by the
// parameterization register.
func (b Builder) WithCounterWidth(cw int) Builder {
	b.counterWidth = cw
	return b
}

// WithNumSlaveSelect sets the slave select line count reported by the
// parameterization register.
func (b Builder) WithNumSlaveSelect(n int) Builder {
	b.numSS = n
	return b
}

// WithPortBufSize sets the buffer capacity of the ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the register file.
func (b Builder) Build(name string) *Comp {
	c := new(Comp)
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	c.param = uint32(b.sdw)<<ParamSDWPos |
		uint32(b.counterWidth)<<ParamCWPos |
		uint32(b.numSS)<<ParamSSWPos

	c.top = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".Top")
	c.cmdOut = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".CmdOut")
	c.wordIn = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".WordIn")
	c.dmaCtl = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".DmaCtl")
	c.xipCfg = sim.NewPort(c, b.portBufSize, b.portBufSize, name+".XipCfg")
	c.AddPort("Top", c.top)
	c.AddPort("CmdOut", c.cmdOut)
	c.AddPort("WordIn", c.wordIn)
	c.AddPort("DmaCtl", c.dmaCtl)
	c.AddPort("XipCfg", c.xipCfg)

	return c
}
