package arbiter_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/arbiter"
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

type arbiterFixture struct {
	engine *sim.SerialEngine
	arb    *arbiter.Comp
	sink   *cmdSink
}

func makeArbiterFixture(strategy arbiter.Strategy) *arbiterFixture {
	f := new(arbiterFixture)
	f.engine = sim.NewSerialEngine()

	f.arb = arbiter.MakeBuilder().
		WithEngine(f.engine).
		WithFreq(1 * sim.GHz).
		WithStrategy(strategy).
		WithPortBufSize(4).
		Build("Arbiter")
	f.sink = newCmdSink("Sink", f.engine, 1*sim.GHz)

	conn := sim.NewDirectConnection("Conn", f.engine, 1*sim.GHz)
	conn.PlugIn(f.arb.Out())
	conn.PlugIn(f.sink.port)

	f.arb.SetDestination(f.sink.port.AsRemote())

	return f
}

func cmdWithData(data uint32) *spi.Command {
	return spi.MakeCommandBuilder().
		WithLength(8).
		WithData(data).
		Build()
}

var _ = Describe("FixedPriority", func() {
	var f *arbiterFixture

	BeforeEach(func() {
		f = makeArbiterFixture(arbiter.FixedPriority{})
	})

	It("should forward a single pending command", func() {
		f.arb.RegIn().Deliver(cmdWithData(0x11000000))

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(1))
		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0x11000000)))
	})

	It("should grant the register path before XIP and DMA", func() {
		f.arb.DmaIn().Deliver(cmdWithData(0x33000000))
		f.arb.XipIn().Deliver(cmdWithData(0x22000000))
		f.arb.RegIn().Deliver(cmdWithData(0x11000000))

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(3))
		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0x11000000)))
		Expect(f.sink.cmds[1].Data).To(Equal(uint32(0x22000000)))
		Expect(f.sink.cmds[2].Data).To(Equal(uint32(0x33000000)))
	})

	It("should keep per-source ordering", func() {
		f.arb.RegIn().Deliver(cmdWithData(0x01000000))
		f.arb.RegIn().Deliver(cmdWithData(0x02000000))
		f.arb.RegIn().Deliver(cmdWithData(0x03000000))

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(3))
		for i, c := range f.sink.cmds {
			Expect(c.Data).To(Equal(uint32(i+1) << 24))
		}
	})

	It("should rewrite the message routing toward the queue", func() {
		f.arb.XipIn().Deliver(cmdWithData(0))

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(1))
		Expect(f.sink.cmds[0].Meta().Src).To(Equal(f.arb.Out().AsRemote()))
		Expect(f.sink.cmds[0].Meta().Dst).To(
			Equal(f.sink.port.AsRemote()))
	})
})

var _ = Describe("RoundRobin", func() {
	It("should rotate grants among pending requesters", func() {
		f := makeArbiterFixture(arbiter.RoundRobin{})

		f.arb.RegIn().Deliver(cmdWithData(0x01000000))
		f.arb.RegIn().Deliver(cmdWithData(0x02000000))
		f.arb.DmaIn().Deliver(cmdWithData(0x03000000))
		f.arb.DmaIn().Deliver(cmdWithData(0x04000000))

		f.engine.Run()

		Expect(f.sink.cmds).To(HaveLen(4))
		Expect(f.sink.cmds[0].Data).To(Equal(uint32(0x01000000)))
		Expect(f.sink.cmds[1].Data).To(Equal(uint32(0x03000000)))
		Expect(f.sink.cmds[2].Data).To(Equal(uint32(0x02000000)))
		Expect(f.sink.cmds[3].Data).To(Equal(uint32(0x04000000)))
	})
})
