// Package controller composes the full engine: the command plane (register
// file, DMA sequencer, XIP front end, arbiter), the output repackager, the
// gray-counter channels into and out of the serial timing domain, the
// serializer, and the input repackager.
package controller

import (
	"math/bits"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/arbiter"
	"github.com/sockitlab/spisim/spi/cdc"
	"github.com/sockitlab/spisim/spi/dma"
	"github.com/sockitlab/spisim/spi/regfile"
	"github.com/sockitlab/spisim/spi/repack"
	"github.com/sockitlab/spisim/spi/serdes"
	"github.com/sockitlab/spisim/spi/xip"
)

// WordConsumer selects which component receives reassembled input words.
type WordConsumer int

// The register file consumes words by default; an XIP-centric composition
// routes them to the XIP front end instead.
const (
	WordToRegFile WordConsumer = iota
	WordToXIP
)

// Controller holds the composed pipeline. Host-facing ports are the
// register file's Top port and the XIP front end's Ctrl port; host
// components plug into CtrlConn to reach them.
type Controller struct {
	RegFile *regfile.Comp
	DMA     *dma.Comp
	XIP     *xip.Comp
	Arbiter *arbiter.Comp
	Outward *repack.Outward
	Inward  *repack.Inward
	SerDes  *serdes.Comp

	DownProducer *cdc.ProducerSide
	DownConsumer *cdc.ConsumerSide
	UpProducer   *cdc.ProducerSide
	UpConsumer   *cdc.ConsumerSide

	CtrlConn   *sim.DirectConnection
	SerialConn *sim.DirectConnection
}

// Components returns every component of the pipeline, for registration
// with a simulation.
func (c *Controller) Components() []sim.Component {
	return []sim.Component{
		c.RegFile, c.DMA, c.XIP, c.Arbiter,
		c.Outward, c.Inward, c.SerDes,
		c.DownProducer, c.DownConsumer,
		c.UpProducer, c.UpConsumer,
	}
}

// Builder builds controllers.
type Builder struct {
	engine       sim.Engine
	ctrlFreq     sim.Freq
	serialFreq   sim.Freq
	sdw          int
	counterWidth int
	cpol         bool
	cpha         bool
	ssMask       uint32
	wire         serdes.Wire
	xipDataMode  spi.IOMode
	wordConsumer WordConsumer
	portBufSize  int
}

// MakeBuilder returns a builder with default parameters: 100 MHz control
// domain, 25 MHz serial domain, 8-bit serializer registers, single-slot
// cross-domain handshake, loopback wire.
func MakeBuilder() Builder {
	return Builder{
		ctrlFreq:     100 * sim.MHz,
		serialFreq:   25 * sim.MHz,
		sdw:          spi.DefaultSDW,
		counterWidth: 1,
		ssMask:       1,
		xipDataMode:  spi.Spi,
		portBufSize:  2,
	}
}

// WithEngine sets the event engine.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithCtrlFreq sets the control-domain clock frequency.
func (b Builder) WithCtrlFreq(freq sim.Freq) Builder {
	b.ctrlFreq = freq
	return b
}

// WithSerialFreq sets the serial-domain clock frequency.
func (b Builder) WithSerialFreq(freq sim.Freq) Builder {
	b.serialFreq = freq
	return b
}

// WithSDW sets the serializer data-register width.
func (b Builder) WithSDW(sdw int) Builder {
	b.sdw = sdw
	return b
}

// WithCounterWidth sets the gray counter width of the cross-domain
// channels.
func (b Builder) WithCounterWidth(w int) Builder {
	b.counterWidth = w
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

// WithSlaveSelectMask sets the slave select lines the serializer asserts.
func (b Builder) WithSlaveSelectMask(mask uint32) Builder {
	b.ssMask = mask
	return b
}

// WithWire sets the pin-level transport. The default is a loopback.
func (b Builder) WithWire(w serdes.Wire) Builder {
	b.wire = w
	return b
}

// WithXIPDataMode sets the IO mode of XIP data phases.
func (b Builder) WithXIPDataMode(mode spi.IOMode) Builder {
	b.xipDataMode = mode
	return b
}

// WithWordConsumer selects the component that receives input words.
func (b Builder) WithWordConsumer(wc WordConsumer) Builder {
	b.wordConsumer = wc
	return b
}

// WithPortBufSize sets the buffer capacity of the internal ports.
func (b Builder) WithPortBufSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates the controller and wires the pipeline end to end.
func (b Builder) Build(name string) *Controller {
	c := new(Controller)

	b.buildComponents(name, c)
	b.connectCtrlDomain(name, c)
	b.connectSerialDomain(name, c)
	b.route(c)

	return c
}

func (b Builder) buildComponents(name string, c *Controller) {
	c.RegFile = regfile.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithSDW(b.sdw).
		WithCounterWidth(b.counterWidth).
		WithNumSlaveSelect(bits.OnesCount32(b.ssMask)).
		WithPortBufSize(b.portBufSize).
		Build(name + ".RegFile")

	c.DMA = dma.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithPortBufSize(b.portBufSize).
		Build(name + ".DMA")

	c.XIP = xip.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithDataMode(b.xipDataMode).
		WithPortBufSize(b.portBufSize).
		Build(name + ".XIP")

	c.Arbiter = arbiter.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithPortBufSize(b.portBufSize).
		Build(name + ".Arbiter")

	c.Outward = repack.MakeOutwardBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithSDW(b.sdw).
		WithPortBufSize(b.portBufSize).
		Build(name + ".Outward")

	c.Inward = repack.MakeInwardBuilder().
		WithEngine(b.engine).
		WithFreq(b.ctrlFreq).
		WithPortBufSize(b.portBufSize).
		Build(name + ".Inward")

	c.SerDes = serdes.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.serialFreq).
		WithSDW(b.sdw).
		WithClockPolarity(b.cpol).
		WithClockPhase(b.cpha).
		WithSlaveSelectMask(b.ssMask).
		WithWire(b.wire).
		WithPortBufSize(b.portBufSize).
		Build(name + ".SerDes")

	c.DownProducer, c.DownConsumer = cdc.MakeBuilder().
		WithEngine(b.engine).
		WithProducerFreq(b.ctrlFreq).
		WithConsumerFreq(b.serialFreq).
		WithCounterWidth(b.counterWidth).
		WithPortBufSize(b.portBufSize).
		Build(name + ".DownChannel")

	c.UpProducer, c.UpConsumer = cdc.MakeBuilder().
		WithEngine(b.engine).
		WithProducerFreq(b.serialFreq).
		WithConsumerFreq(b.ctrlFreq).
		WithCounterWidth(b.counterWidth).
		WithPortBufSize(b.portBufSize).
		Build(name + ".UpChannel")
}

func (b Builder) connectCtrlDomain(name string, c *Controller) {
	c.CtrlConn = sim.NewDirectConnection(
		name+".CtrlConn", b.engine, b.ctrlFreq)

	c.CtrlConn.PlugIn(c.RegFile.Top())
	c.CtrlConn.PlugIn(c.RegFile.CmdOut())
	c.CtrlConn.PlugIn(c.RegFile.WordIn())
	c.CtrlConn.PlugIn(c.RegFile.DmaCtl())
	c.CtrlConn.PlugIn(c.RegFile.XipCfg())
	c.CtrlConn.PlugIn(c.DMA.Ctrl())
	c.CtrlConn.PlugIn(c.DMA.CmdOut())
	c.CtrlConn.PlugIn(c.XIP.Ctrl())
	c.CtrlConn.PlugIn(c.XIP.CmdOut())
	c.CtrlConn.PlugIn(c.XIP.WordIn())
	c.CtrlConn.PlugIn(c.Arbiter.RegIn())
	c.CtrlConn.PlugIn(c.Arbiter.XipIn())
	c.CtrlConn.PlugIn(c.Arbiter.DmaIn())
	c.CtrlConn.PlugIn(c.Arbiter.Out())
	c.CtrlConn.PlugIn(c.Outward.CmdIn())
	c.CtrlConn.PlugIn(c.Outward.QueueOut())
	c.CtrlConn.PlugIn(c.DownProducer.In())
	c.CtrlConn.PlugIn(c.UpConsumer.Out())
	c.CtrlConn.PlugIn(c.Inward.FragIn())
	c.CtrlConn.PlugIn(c.Inward.WordOut())
}

func (b Builder) connectSerialDomain(name string, c *Controller) {
	c.SerialConn = sim.NewDirectConnection(
		name+".SerialConn", b.engine, b.serialFreq)

	c.SerialConn.PlugIn(c.DownConsumer.Out())
	c.SerialConn.PlugIn(c.SerDes.QueueIn())
	c.SerialConn.PlugIn(c.SerDes.FragOut())
	c.SerialConn.PlugIn(c.UpProducer.In())
}

func (b Builder) route(c *Controller) {
	c.RegFile.SetCmdDestination(c.Arbiter.RegIn().AsRemote())
	c.RegFile.SetDmaDestination(c.DMA.Ctrl().AsRemote())
	c.RegFile.SetXipDestination(c.XIP.Ctrl().AsRemote())
	c.XIP.SetCmdDestination(c.Arbiter.XipIn().AsRemote())
	c.DMA.SetCmdDestination(c.Arbiter.DmaIn().AsRemote())
	c.Arbiter.SetDestination(c.Outward.CmdIn().AsRemote())
	c.Outward.SetQueueDestination(c.DownProducer.In().AsRemote())
	c.DownConsumer.SetDestination(c.SerDes.QueueIn().AsRemote())
	c.SerDes.SetFragDestination(c.UpProducer.In().AsRemote())
	c.UpConsumer.SetDestination(c.Inward.FragIn().AsRemote())

	switch b.wordConsumer {
	case WordToXIP:
		c.Inward.SetWordDestination(c.XIP.WordIn().AsRemote())
	default:
		c.Inward.SetWordDestination(c.RegFile.WordIn().AsRemote())
	}
}
