package spi

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("IOMode", func() {
	It("should report the lane counts", func() {
		Expect(ThreeWire.Lanes()).To(Equal(1))
		Expect(Spi.Lanes()).To(Equal(1))
		Expect(Dual.Lanes()).To(Equal(2))
		Expect(Quad.Lanes()).To(Equal(4))
	})
})

var _ = Describe("Lane packing", func() {
	It("should pack a single-lane unit MSB first", func() {
		lanes := PackUnit(0x01234567, Spi, 8)

		Expect(lanes[0]).To(Equal(uint32(0x01)))
		Expect(lanes[1]).To(Equal(uint32(0)))
		Expect(lanes[2]).To(Equal(uint32(0)))
		Expect(lanes[3]).To(Equal(uint32(0)))
	})

	It("should interleave quad units with the top lane carrying the "+
		"most significant bit of each clock", func() {
		lanes := PackUnit(0x01234567, Quad, 8)

		Expect(lanes[3]).To(Equal(uint32(0x00)))
		Expect(lanes[2]).To(Equal(uint32(0x0F)))
		Expect(lanes[1]).To(Equal(uint32(0x33)))
		Expect(lanes[0]).To(Equal(uint32(0x55)))
	})

	It("should round-trip every mode", func() {
		data := uint32(0xA5C35A3C)

		for _, mode := range []IOMode{ThreeWire, Spi, Dual, Quad} {
			lanes := PackUnit(data, mode, 8)
			recovered, bits := UnpackUnit(lanes, mode, 8)

			Expect(bits).To(Equal(8 * mode.Lanes()))
			Expect(recovered).To(
				Equal(data>>(DataWidth-bits)),
				"mode %s", mode)
		}
	})

	It("should round-trip a partial unit", func() {
		data := uint32(0xDEADBEEF)

		lanes := PackUnit(data, Spi, 8)
		// Only the first 3 clocks of the unit run.
		recovered, bits := UnpackUnit([MaxLanes]uint32{lanes[0] >> 5},
			Spi, 3)

		Expect(bits).To(Equal(3))
		Expect(recovered).To(Equal(data >> 29))
	})

	It("should shift the data register by lanes x SDW after a unit", func() {
		Expect(ShiftAfterUnit(0x01234567, Spi, 8)).To(
			Equal(uint32(0x23456700)))
		Expect(ShiftAfterUnit(0x01234567, Dual, 8)).To(
			Equal(uint32(0x45670000)))
		Expect(ShiftAfterUnit(0x01234567, Quad, 8)).To(
			Equal(uint32(0)))
	})
})
