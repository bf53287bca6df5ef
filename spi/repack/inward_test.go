package repack_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/repack"
)

type inwardFixture struct {
	engine *sim.SerialEngine
	inward *repack.Inward
	sink   *msgSink
}

func makeInwardFixture() *inwardFixture {
	f := new(inwardFixture)
	f.engine = sim.NewSerialEngine()

	f.inward = repack.MakeInwardBuilder().
		WithEngine(f.engine).
		WithFreq(1 * sim.GHz).
		WithPortBufSize(4).
		Build("Inward")
	f.sink = newMsgSink("Sink", f.engine, 1*sim.GHz)

	conn := sim.NewDirectConnection("Conn", f.engine, 1*sim.GHz)
	conn.PlugIn(f.inward.WordOut())
	conn.PlugIn(f.sink.port)

	f.inward.SetWordDestination(f.sink.port.AsRemote())

	return f
}

func (f *inwardFixture) deliver(frag *spi.Fragment) {
	f.inward.FragIn().Deliver(frag)
}

func (f *inwardFixture) words() []*spi.WordIn {
	var list []*spi.WordIn
	for _, m := range f.sink.msgs {
		list = append(list, m.(*spi.WordIn))
	}

	return list
}

var _ = Describe("Inward", func() {
	var f *inwardFixture

	BeforeEach(func() {
		f = makeInwardFixture()
	})

	It("should reassemble multi-unit words", func() {
		f.deliver(&spi.Fragment{
			UnitLength:  8,
			IsFirstWord: true,
			Mode:        spi.Spi,
			LaneData:    [spi.MaxLanes]uint32{0xDE},
		})
		f.deliver(&spi.Fragment{
			UnitLength: 8,
			IsLastUnit: true,
			Mode:       spi.Spi,
			LaneData:   [spi.MaxLanes]uint32{0xAD},
		})

		f.engine.Run()

		words := f.words()
		Expect(words).To(HaveLen(1))
		Expect(words[0].Data).To(Equal(uint32(0xDEAD)))
		Expect(words[0].BitCount).To(Equal(16))
		Expect(words[0].FirstWord).To(BeTrue())
	})

	It("should annotate the word with the fragment's IO mode", func() {
		// 8 quad clocks of the pattern 0x0F, 0x33, 0x55 on the low lanes
		// reassemble to 0x01234567.
		f.deliver(&spi.Fragment{
			UnitLength: 8,
			IsLastUnit: true,
			Mode:       spi.Quad,
			LaneData:   [spi.MaxLanes]uint32{0x55, 0x33, 0x0F, 0x00},
		})

		f.engine.Run()

		words := f.words()
		Expect(words).To(HaveLen(1))
		Expect(words[0].Mode).To(Equal(spi.Quad))
		Expect(words[0].BitCount).To(Equal(32))
		Expect(words[0].Data).To(Equal(uint32(0x01234567)))
	})

	It("should emit one word per accumulation", func() {
		for i := 0; i < 2; i++ {
			f.deliver(&spi.Fragment{
				UnitLength: 4,
				IsLastUnit: true,
				Mode:       spi.Spi,
				LaneData:   [spi.MaxLanes]uint32{0x05},
			})
		}

		f.engine.Run()

		words := f.words()
		Expect(words).To(HaveLen(2))
		for _, w := range words {
			Expect(w.BitCount).To(Equal(4))
			Expect(w.Data).To(Equal(uint32(0x05)))
		}
	})
})
