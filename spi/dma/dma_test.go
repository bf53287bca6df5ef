package dma_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/dma"
)

type cmdSink struct {
	*sim.TickingComponent

	port sim.Port
	cmds []*spi.Command
}

func newCmdSink(name string, engine sim.Engine, freq sim.Freq) *cmdSink {
	s := new(cmdSink)
	s.TickingComponent = sim.NewTickingComponent(name, engine, freq, s)
	s.port = sim.NewPort(s, 1, 1, name+".In")
	s.AddPort("In", s.port)

	return s
}

func (s *cmdSink) Tick() bool {
	msg := s.port.PeekIncoming()
	if msg == nil {
		return false
	}

	s.cmds = append(s.cmds, msg.(*spi.Command))
	s.port.RetrieveIncoming()

	return true
}

type rspCollector struct {
	*sim.TickingComponent

	port sim.Port
	rsps []sim.Rsp
}

func newRspCollector(name string, engine sim.Engine, freq sim.Freq,
) *rspCollector {
	c := new(rspCollector)
	c.TickingComponent = sim.NewTickingComponent(name, engine, freq, c)
	c.port = sim.NewPort(c, 1, 1, name+".Out")
	c.AddPort("Out", c.port)

	return c
}

func (c *rspCollector) Tick() bool {
	msg := c.port.PeekIncoming()
	if msg == nil {
		return false
	}

	c.rsps = append(c.rsps, msg.(sim.Rsp))
	c.port.RetrieveIncoming()

	return true
}

type dmaFixture struct {
	engine    *sim.SerialEngine
	dma       *dma.Comp
	sink      *cmdSink
	collector *rspCollector
}

func makeDMAFixture() *dmaFixture {
	f := new(dmaFixture)
	f.engine = sim.NewSerialEngine()

	f.dma = dma.MakeBuilder().
		WithEngine(f.engine).
		WithFreq(1 * sim.GHz).
		WithPortBufSize(4).
		Build("DMA")
	f.sink = newCmdSink("Sink", f.engine, 1*sim.GHz)
	f.collector = newRspCollector("Host", f.engine, 1*sim.GHz)

	conn := sim.NewDirectConnection("Conn", f.engine, 1*sim.GHz)
	conn.PlugIn(f.dma.Ctrl())
	conn.PlugIn(f.dma.CmdOut())
	conn.PlugIn(f.sink.port)
	conn.PlugIn(f.collector.port)

	f.dma.SetCmdDestination(f.sink.port.AsRemote())

	return f
}

func (f *dmaFixture) start(req *dma.StartReq) {
	req.Src = f.collector.port.AsRemote()
	req.Dst = f.dma.Ctrl().AsRemote()
	f.dma.Ctrl().Deliver(req)
}

var _ = Describe("Comp", func() {
	var f *dmaFixture

	BeforeEach(func() {
		f = makeDMAFixture()
	})

	It("should slice a 10-byte output burst into 4+4+2", func() {
		f.start(dma.MakeStartReqBuilder().
			WithByteLength(10).
			WithData([]byte{
				0x01, 0x02, 0x03, 0x04, 0x05,
				0x06, 0x07, 0x08, 0x09, 0x0A,
			}).
			Build())

		f.engine.Run()

		cmds := f.sink.cmds
		Expect(cmds).To(HaveLen(3))

		Expect(cmds[0].Length).To(Equal(32))
		Expect(cmds[0].Data).To(Equal(uint32(0x01020304)))
		Expect(cmds[0].LastSegment).To(BeFalse())

		Expect(cmds[1].Length).To(Equal(32))
		Expect(cmds[1].Data).To(Equal(uint32(0x05060708)))
		Expect(cmds[1].LastSegment).To(BeFalse())

		Expect(cmds[2].Length).To(Equal(16))
		Expect(cmds[2].Data).To(Equal(uint32(0x090A0000)))
		Expect(cmds[2].LastSegment).To(BeTrue())
	})

	It("should scale command length by the lane count", func() {
		f.start(dma.MakeStartReqBuilder().
			WithMode(spi.Quad).
			WithByteLength(4).
			WithData([]byte{0xDE, 0xAD, 0xBE, 0xEF}).
			Build())

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(1))
		Expect(f.sink.cmds[0].Length).To(Equal(8))
		Expect(f.sink.cmds[0].Mode).To(Equal(spi.Quad))
	})

	It("should issue input commands with sampling enabled", func() {
		f.start(dma.MakeStartReqBuilder().
			WithDirection(spi.In).
			WithByteLength(4).
			Build())

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(1))
		Expect(f.sink.cmds[0].DataInputEnable).To(BeTrue())
		Expect(f.sink.cmds[0].DataOutputEnable).To(BeFalse())
		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0)))
	})

	It("should report completion after the last command is accepted",
		func() {
			req := dma.MakeStartReqBuilder().
				WithByteLength(8).
				WithData(make([]byte, 8)).
				Build()
			f.start(req)

			f.engine.Run()

			Expect(f.collector.rsps).To(HaveLen(1))
			Expect(f.collector.rsps[0].GetRspTo()).To(Equal(req.ID))
			Expect(f.dma.Busy()).To(BeFalse())
		})

	It("should complete an empty task without issuing commands", func() {
		f.start(dma.MakeStartReqBuilder().Build())

		f.engine.Run()

		Expect(f.sink.cmds).To(BeEmpty())
		Expect(f.collector.rsps).To(HaveLen(1))
	})

	It("should run tasks strictly one at a time", func() {
		f.start(dma.MakeStartReqBuilder().
			WithByteLength(4).
			WithData([]byte{0x11, 0x22, 0x33, 0x44}).
			Build())
		f.start(dma.MakeStartReqBuilder().
			WithByteLength(4).
			WithData([]byte{0x55, 0x66, 0x77, 0x88}).
			Build())

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(2))
		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0x11223344)))
		Expect(f.sink.cmds[1].Data).To(Equal(uint32(0x55667788)))
		Expect(f.collector.rsps).To(HaveLen(2))
	})
})
