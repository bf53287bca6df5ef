package serdes

import "github.com/sockitlab/spisim/spi"

// PinState is everything the serializer drives at one serial clock edge.
// Enables are explicit; no tristate behavior is modeled, the transport
// layer decides direction.
type PinState struct {
	SclkOut    bool
	SclkEnable bool

	DataOut    [spi.MaxLanes]bool
	DataEnable [spi.MaxLanes]bool

	SlaveSelect       uint32
	SlaveSelectEnable uint32
}

// PinSample is everything the serializer samples at the same edge.
type PinSample struct {
	Data [spi.MaxLanes]bool

	// SlaveSelect is the loop-back of the slave select input, asserted
	// high. Deassertion resets the slave-mode first-word framing.
	SlaveSelect bool
}

// A Wire carries pin values between the serializer and whatever sits on the
// other end of the serial bus. Step presents one edge's outputs and returns
// the inputs observed at that edge.
type Wire interface {
	Step(state PinState) PinSample
}

// Loopback is a wire that echoes the driven lanes back to the sampled
// lanes. On a lane the master does not drive, it mirrors lane 0, which
// routes master-out to master-in for the classic SPI pin pair.
type Loopback struct{}

// NewLoopback creates a loopback wire.
func NewLoopback() *Loopback {
	return &Loopback{}
}

// Step echoes outputs back as inputs.
func (l *Loopback) Step(state PinState) PinSample {
	var sample PinSample

	for i := 0; i < spi.MaxLanes; i++ {
		if state.DataEnable[i] {
			sample.Data[i] = state.DataOut[i]
		} else {
			sample.Data[i] = state.DataOut[0]
		}
	}

	sample.SlaveSelect = state.SlaveSelectEnable&state.SlaveSelect != 0

	return sample
}
