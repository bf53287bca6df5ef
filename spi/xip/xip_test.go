package xip_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/xip"
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

type host struct {
	*sim.TickingComponent

	port sim.Port
	rsps []*xip.ReadRsp
}

func newHost(name string, engine sim.Engine, freq sim.Freq) *host {
	h := new(host)
	h.TickingComponent = sim.NewTickingComponent(name, engine, freq, h)
	h.port = sim.NewPort(h, 1, 1, name+".Out")
	h.AddPort("Out", h.port)

	return h
}

func (h *host) Tick() bool {
	msg := h.port.PeekIncoming()
	if msg == nil {
		return false
	}

	h.rsps = append(h.rsps, msg.(*xip.ReadRsp))
	h.port.RetrieveIncoming()

	return true
}

type xipFixture struct {
	engine *sim.SerialEngine
	xip    *xip.Comp
	sink   *cmdSink
	host   *host
}

func makeXIPFixture(opts ...func(xip.Builder) xip.Builder) *xipFixture {
	f := new(xipFixture)
	f.engine = sim.NewSerialEngine()

	builder := xip.MakeBuilder().
		WithEngine(f.engine).
		WithFreq(1 * sim.GHz).
		WithPortBufSize(8)
	for _, o := range opts {
		builder = o(builder)
	}

	f.xip = builder.Build("XIP")
	f.sink = newCmdSink("Sink", f.engine, 1*sim.GHz)
	f.host = newHost("Host", f.engine, 1*sim.GHz)

	conn := sim.NewDirectConnection("Conn", f.engine, 1*sim.GHz)
	conn.PlugIn(f.xip.Ctrl())
	conn.PlugIn(f.xip.CmdOut())
	conn.PlugIn(f.sink.port)
	conn.PlugIn(f.host.port)

	f.xip.SetCmdDestination(f.sink.port.AsRemote())

	return f
}

func (f *xipFixture) read(addr uint32, n int) *xip.ReadReq {
	req := &xip.ReadReq{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: f.host.port.AsRemote(),
			Dst: f.xip.Ctrl().AsRemote(),
		},
		Address:    addr,
		ByteLength: n,
	}
	f.xip.Ctrl().Deliver(req)

	return req
}

func (f *xipFixture) word(data uint32, bits int) {
	f.xip.WordIn().Deliver(&spi.WordIn{
		MsgMeta:  sim.MsgMeta{ID: sim.GetIDGenerator().Generate()},
		BitCount: bits,
		Data:     data,
	})
}

var _ = Describe("Comp", func() {
	var f *xipFixture

	BeforeEach(func() {
		f = makeXIPFixture()
	})

	It("should emit the read template for a 6-byte fetch", func() {
		f.read(0x123456, 6)

		f.engine.Run()

		cmds := f.sink.cmds
		Expect(cmds).To(HaveLen(4))

		Expect(cmds[0].Length).To(Equal(8))
		Expect(cmds[0].Data).To(Equal(uint32(0x03000000)))
		Expect(cmds[0].DataOutputEnable).To(BeTrue())
		Expect(cmds[0].LastSegment).To(BeFalse())

		Expect(cmds[1].Length).To(Equal(24))
		Expect(cmds[1].Data).To(Equal(uint32(0x12345600)))
		Expect(cmds[1].LastSegment).To(BeFalse())

		Expect(cmds[2].Length).To(Equal(32))
		Expect(cmds[2].DataInputEnable).To(BeTrue())
		Expect(cmds[2].DataOutputEnable).To(BeFalse())
		Expect(cmds[2].LastSegment).To(BeFalse())

		Expect(cmds[3].Length).To(Equal(16))
		Expect(cmds[3].LastSegment).To(BeTrue())
	})

	It("should collect words into the response", func() {
		req := f.read(0, 6)

		f.engine.Run()

		f.word(0xAABBCCDD, 32)
		f.word(0xEEFF, 16)

		f.engine.Run()

		Expect(f.host.rsps).To(HaveLen(1))
		Expect(f.host.rsps[0].GetRspTo()).To(Equal(req.ID))
		Expect(f.host.rsps[0].Data).To(Equal(
			[]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}))
		Expect(f.xip.Busy()).To(BeFalse())
	})

	It("should add the configured read offset to the address", func() {
		f.xip.Ctrl().Deliver(&xip.SetOffsetReq{
			MsgMeta:    sim.MsgMeta{ID: sim.GetIDGenerator().Generate()},
			ReadOffset: 0x100000,
		})
		f.read(0x000456, 1)

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(3))
		Expect(f.sink.cmds[1].Data).To(Equal(uint32(0x10045600)))
	})

	It("should run the data phase in the configured wide mode", func() {
		f = makeXIPFixture(func(b xip.Builder) xip.Builder {
			return b.WithDataMode(spi.Quad)
		})

		f.read(0, 4)

		f.engine.Run()

		cmds := f.sink.cmds
		Expect(cmds).To(HaveLen(3))
		Expect(cmds[0].Mode).To(Equal(spi.Spi))
		Expect(cmds[1].Mode).To(Equal(spi.Spi))
		Expect(cmds[2].Mode).To(Equal(spi.Quad))
		Expect(cmds[2].Length).To(Equal(8))
	})

	It("should use a custom read opcode", func() {
		f = makeXIPFixture(func(b xip.Builder) xip.Builder {
			return b.WithReadCommand(0x0B)
		})

		f.read(0, 1)

		f.engine.Run()

		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0x0B000000)))
	})
})
