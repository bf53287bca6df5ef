package repack

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
)

// Inward reassembles captured fragments into host-width words. One word is
// emitted per completed accumulation, annotated with the IO mode and the
// slave-mode first-word framing flag.
type Inward struct {
	*sim.TickingComponent

	fragIn  sim.Port
	wordOut sim.Port
	wordDst sim.RemotePort

	acc       uint32
	accBits   int
	firstWord bool
}

// FragIn returns the port on which fragments arrive.
func (i *Inward) FragIn() sim.Port {
	return i.fragIn
}

// WordOut returns the port that emits reassembled words.
func (i *Inward) WordOut() sim.Port {
	return i.wordOut
}

// SetWordDestination sets the remote port that consumes the words.
func (i *Inward) SetWordDestination(dst sim.RemotePort) {
	i.wordDst = dst
}

// Tick folds at most one fragment into the accumulator.
func (i *Inward) Tick() bool {
	msg := i.fragIn.PeekIncoming()
	if msg == nil {
		return false
	}

	frag := msg.(*spi.Fragment)

	// The word is emitted on the same cycle the last fragment is taken;
	// stall the fragment until there is room for the word.
	if frag.IsLastUnit && !i.wordOut.CanSend() {
		return false
	}

	i.fragIn.RetrieveIncoming()

	if i.accBits == 0 {
		i.firstWord = frag.IsFirstWord
	}

	data, bits := spi.UnpackUnit(frag.LaneData, frag.Mode, frag.UnitLength)
	i.acc = i.acc<<bits | data
	i.accBits += bits

	if !frag.IsLastUnit {
		return true
	}

	word := &spi.WordIn{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: i.wordOut.AsRemote(),
			Dst: i.wordDst,
		},
		FirstWord:   i.firstWord,
		LastSegment: frag.LastSegment,
		Mode:        frag.Mode,
		BitCount:    i.accBits,
		Data:        i.acc,
	}

	err := i.wordOut.Send(word)
	if err != nil {
		panic("send failed after CanSend reported room")
	}

	i.acc = 0
	i.accBits = 0
	i.firstWord = false

	return true
}

// InwardBuilder builds inward repackagers.
type InwardBuilder struct {
	engine      sim.Engine
	freq        sim.Freq
	portBufSize int
}

// MakeInwardBuilder returns a builder with default parameters.
func MakeInwardBuilder() InwardBuilder {
	return InwardBuilder{
		portBufSize: 1,
	}
}

// WithEngine sets the event engine.
func (b InwardBuilder) WithEngine(engine sim.Engine) InwardBuilder {
	b.engine = engine
	return b
}

// WithFreq sets the control-domain clock frequency.
func (b InwardBuilder) WithFreq(freq sim.Freq) InwardBuilder {
	b.freq = freq
	return b
}

// WithPortBufSize sets the buffer capacity of the ports.
func (b InwardBuilder) WithPortBufSize(n int) InwardBuilder {
	b.portBufSize = n
	return b
}

// Build creates the inward repackager.
func (b InwardBuilder) Build(name string) *Inward {
	i := new(Inward)
	i.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, i)

	i.fragIn = sim.NewPort(i, b.portBufSize, b.portBufSize, name+".FragIn")
	i.wordOut = sim.NewPort(i, b.portBufSize, b.portBufSize,
		name+".WordOut")
	i.AddPort("FragIn", i.fragIn)
	i.AddPort("WordOut", i.wordOut)

	return i
}
