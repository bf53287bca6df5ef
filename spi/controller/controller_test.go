package controller_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/controller"
	"github.com/sockitlab/spisim/spi/regfile"
	"github.com/sockitlab/spisim/spi/xip"
)

type host struct {
	*sim.TickingComponent

	port sim.Port
	msgs []sim.Msg
}

func newHost(name string, engine sim.Engine, freq sim.Freq) *host {
	h := new(host)
	h.TickingComponent = sim.NewTickingComponent(name, engine, freq, h)
	h.port = sim.NewPort(h, 4, 4, name+".Out")
	h.AddPort("Out", h.port)

	return h
}

func (h *host) Tick() bool {
	msg := h.port.PeekIncoming()
	if msg == nil {
		return false
	}

	h.msgs = append(h.msgs, msg)
	h.port.RetrieveIncoming()

	return true
}

type ctrlFixture struct {
	engine *sim.SerialEngine
	ctrl   *controller.Controller
	host   *host
}

func makeCtrlFixture(
	opts ...func(controller.Builder) controller.Builder,
) *ctrlFixture {
	f := new(ctrlFixture)
	f.engine = sim.NewSerialEngine()

	builder := controller.MakeBuilder().WithEngine(f.engine)
	for _, o := range opts {
		builder = o(builder)
	}

	f.ctrl = builder.Build("Ctrl")
	f.host = newHost("Host", f.engine, 100*sim.MHz)
	f.ctrl.CtrlConn.PlugIn(f.host.port)

	return f
}

func (f *ctrlFixture) writeReg(addr int, data uint32) {
	f.ctrl.RegFile.Top().Deliver(regfile.WriteReqBuilder{}.
		WithSrc(f.host.port.AsRemote()).
		WithDst(f.ctrl.RegFile.Top().AsRemote()).
		WithAddr(addr).
		WithData(data).
		Build())

	f.engine.Run()
}

func (f *ctrlFixture) readReg(addr int) uint32 {
	f.ctrl.RegFile.Top().Deliver(regfile.ReadReqBuilder{}.
		WithSrc(f.host.port.AsRemote()).
		WithDst(f.ctrl.RegFile.Top().AsRemote()).
		WithAddr(addr).
		Build())

	f.engine.Run()

	last := f.host.msgs[len(f.host.msgs)-1]

	return last.(*regfile.RegReadRsp).Data
}

// transfer runs one full-duplex loopback transfer through the register
// interface and returns the captured word.
func (f *ctrlFixture) transfer(
	mode spi.IOMode, length int, data uint32,
) uint32 {
	f.writeReg(regfile.RegData, data)
	f.writeReg(regfile.RegCtl, regfile.CtlStart|
		regfile.CtlClockEnable|
		regfile.CtlSlaveSelectEnable|
		regfile.CtlOutputEnable|
		regfile.CtlInputEnable|
		regfile.CtlLastSegment|
		uint32(mode)<<regfile.CtlModePos|
		uint32(length&regfile.CtlLengthMask))

	Expect(f.readReg(regfile.RegIrq) & regfile.IrqRxPending).ToNot(
		BeZero())
	f.writeReg(regfile.RegIrq, regfile.IrqRxPending)

	return f.readReg(regfile.RegData)
}

var _ = Describe("Controller", func() {
	var f *ctrlFixture

	BeforeEach(func() {
		f = makeCtrlFixture()
	})

	DescribeTable("loopback echoes the transmitted bits in every mode",
		func(mode spi.IOMode, length int, data uint32) {
			got := f.transfer(mode, length, data)

			bitCount := length * mode.Lanes()
			want := data >> (spi.DataWidth - bitCount)
			if bitCount >= spi.DataWidth {
				want = data
			}

			Expect(got).To(Equal(want))
		},
		Entry("SPI, 1 clock", spi.Spi, 1, uint32(0x80000000)),
		Entry("SPI, 7 clocks", spi.Spi, 7, uint32(0xFE000000)),
		Entry("SPI, 8 clocks", spi.Spi, 8, uint32(0xA5000000)),
		Entry("SPI, 9 clocks", spi.Spi, 9, uint32(0x01234567)),
		Entry("SPI, 32 clocks", spi.Spi, 32, uint32(0xDEADBEEF)),
		Entry("3-wire, 8 clocks", spi.ThreeWire, 8, uint32(0x3C000000)),
		Entry("dual, 16 clocks", spi.Dual, 16, uint32(0xCAFEBABE)),
		Entry("quad, 8 clocks", spi.Quad, 8, uint32(0x01234567)),
		Entry("quad, 3 clocks", spi.Quad, 3, uint32(0xDEADB000)),
	)

	It("should run back-to-back transfers without mixing data", func() {
		first := f.transfer(spi.Spi, 8, 0x11000000)
		second := f.transfer(spi.Spi, 8, 0x22000000)

		Expect(first).To(Equal(uint32(0x11)))
		Expect(second).To(Equal(uint32(0x22)))
	})

	It("should hold one frame across chained segments", func() {
		f.writeReg(regfile.RegData, 0xAB000000)
		f.writeReg(regfile.RegCtl, regfile.CtlStart|
			regfile.CtlClockEnable|
			regfile.CtlSlaveSelectEnable|
			regfile.CtlOutputEnable|
			regfile.CtlInputEnable|
			8)

		f.writeReg(regfile.RegData, 0xCD000000)
		f.writeReg(regfile.RegCtl, regfile.CtlStart|
			regfile.CtlClockEnable|
			regfile.CtlSlaveSelectEnable|
			regfile.CtlOutputEnable|
			regfile.CtlInputEnable|
			regfile.CtlLastSegment|
			8)

		Expect(f.readReg(regfile.RegData)).To(Equal(uint32(0xCD)))
	})

	It("should report idle status after the pipeline drains", func() {
		f.transfer(spi.Spi, 16, 0xFFFF0000)

		status := f.readReg(regfile.RegCtl)
		Expect(status & regfile.StatusCmdBusy).To(BeZero())
		Expect(f.ctrl.SerDes.Running()).To(BeFalse())
		Expect(f.ctrl.Outward.Busy()).To(BeFalse())
	})

	It("should work with a deeper cross-domain queue", func() {
		f = makeCtrlFixture(
			func(b controller.Builder) controller.Builder {
				return b.WithCounterWidth(2)
			})

		got := f.transfer(spi.Spi, 32, 0x0BADF00D)
		Expect(got).To(Equal(uint32(0x0BADF00D)))
	})

	It("should work with a slow serial domain", func() {
		f = makeCtrlFixture(
			func(b controller.Builder) controller.Builder {
				return b.WithSerialFreq(1 * sim.MHz)
			})

		got := f.transfer(spi.Quad, 8, 0x87654321)
		Expect(got).To(Equal(uint32(0x87654321)))
	})

	It("should run a DMA burst through the serial pipeline", func() {
		f.writeReg(regfile.RegDma, regfile.DmaStart|6)

		Expect(f.readReg(regfile.RegDma) & regfile.DmaStart).To(
			BeZero())
	})

	It("should serve an XIP read through the loopback", func() {
		f = makeCtrlFixture(
			func(b controller.Builder) controller.Builder {
				return b.WithWordConsumer(controller.WordToXIP)
			})

		req := &xip.ReadReq{
			MsgMeta: sim.MsgMeta{
				ID:  sim.GetIDGenerator().Generate(),
				Src: f.host.port.AsRemote(),
				Dst: f.ctrl.XIP.Ctrl().AsRemote(),
			},
			Address:    0x123456,
			ByteLength: 4,
		}
		f.ctrl.XIP.Ctrl().Deliver(req)

		f.engine.Run()

		var rsp *xip.ReadRsp
		for _, m := range f.host.msgs {
			if r, ok := m.(*xip.ReadRsp); ok {
				rsp = r
			}
		}

		Expect(rsp).ToNot(BeNil())
		Expect(rsp.GetRspTo()).To(Equal(req.ID))
		Expect(rsp.Data).To(HaveLen(4))
	})
})
