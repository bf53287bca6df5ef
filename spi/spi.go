// Package spi defines the messages and data layouts shared by the components
// of the SPI controller core: host-level commands, fixed-width queue
// transfers, captured input fragments, and the per-IO-mode lane packing that
// converts between them.
package spi

// DataWidth is the width of the host-facing data register, in bits.
const DataWidth = 32

// DefaultSDW is the default serializer data-register width, the atomic unit
// size for one serialization lane.
const DefaultSDW = 8

// MaxLanes is the number of parallel IO data paths the core supports.
const MaxLanes = 4

// Direction tells whether a command moves data out of or into the host.
type Direction int

// Transfer directions.
const (
	In Direction = iota
	Out
)

func (d Direction) String() string {
	if d == In {
		return "In"
	}
	return "Out"
}

// IOMode selects how many IO lanes a transfer drives and samples.
type IOMode int

// IO modes. ThreeWire and Spi serialize on a single lane, Dual on two, Quad
// on four.
const (
	ThreeWire IOMode = iota
	Spi
	Dual
	Quad
)

// Lanes returns the number of active IO lanes of the mode.
func (m IOMode) Lanes() int {
	switch m {
	case Dual:
		return 2
	case Quad:
		return 4
	default:
		return 1
	}
}

func (m IOMode) String() string {
	switch m {
	case ThreeWire:
		return "3-wire"
	case Spi:
		return "SPI"
	case Dual:
		return "Dual"
	case Quad:
		return "Quad"
	}
	return "Unknown"
}

// PackUnit repacks the leading serialization unit of a left-justified data
// register into per-lane shift words of width sdw, MSB first. At serial
// clock k, lane j carries data bit k*L+(L-1-j), where L is the lane count of
// the mode, so the highest-numbered lane holds the most significant bit of
// each clock's group. Inactive lanes are left zero; they are not sampled
// downstream.
func PackUnit(data uint32, mode IOMode, sdw int) [MaxLanes]uint32 {
	var lanes [MaxLanes]uint32
	numLanes := mode.Lanes()

	for k := 0; k < sdw; k++ {
		for j := 0; j < numLanes; j++ {
			bitIndex := k*numLanes + (numLanes - 1 - j)
			if bitIndex >= DataWidth {
				continue
			}

			bit := (data >> (DataWidth - 1 - bitIndex)) & 1
			lanes[j] |= bit << (sdw - 1 - k)
		}
	}

	return lanes
}

// UnpackUnit reassembles n serial clocks of per-lane input shift words into
// data bits, MSB first, right-aligned in the returned word. The input shift
// registers sample into the LSB, so the bit captured at clock k sits at
// position n-1-k. The second return value is the number of data bits
// recovered, n times the lane count.
func UnpackUnit(lanes [MaxLanes]uint32, mode IOMode, n int) (uint32, int) {
	var data uint32
	numLanes := mode.Lanes()

	for k := 0; k < n; k++ {
		for j := numLanes - 1; j >= 0; j-- {
			bit := (lanes[j] >> (n - 1 - k)) & 1
			data = data<<1 | bit
		}
	}

	return data, n * numLanes
}

// ShiftAfterUnit returns the data register contents after one serialization
// unit is consumed: shifted left by lanes x sdw bits.
func ShiftAfterUnit(data uint32, mode IOMode, sdw int) uint32 {
	shift := mode.Lanes() * sdw
	if shift >= DataWidth {
		return 0
	}

	return data << shift
}
