package spi

import "github.com/sockitlab/spisim/sim"

// A QueueTransfer is one fixed-width serialization unit of a command, at
// most SDW serial clocks long, with the data already packed per lane.
type QueueTransfer struct {
	sim.MsgMeta

	UnitLength        int
	IsLastUnit        bool
	LastSegment       bool
	Mode              IOMode
	ClockEnable       bool
	SlaveSelectEnable bool
	DataOutputEnable  bool
	DataInputEnable   bool
	LaneData          [MaxLanes]uint32
}

// Meta returns the meta data of the transfer.
func (t *QueueTransfer) Meta() *sim.MsgMeta {
	return &t.MsgMeta
}

// Clone returns a copy of the transfer with a new ID.
func (t *QueueTransfer) Clone() sim.Msg {
	cloneMsg := *t
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A Fragment carries the input shift-register contents captured during one
// completed serialization unit, on its way back to the host domain.
type Fragment struct {
	sim.MsgMeta

	UnitLength  int
	IsFirstWord bool
	IsLastUnit  bool
	LastSegment bool
	Mode        IOMode
	LaneData    [MaxLanes]uint32
}

// Meta returns the meta data of the fragment.
func (f *Fragment) Meta() *sim.MsgMeta {
	return &f.MsgMeta
}

// Clone returns a copy of the fragment with a new ID.
func (f *Fragment) Clone() sim.Msg {
	cloneMsg := *f
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A WordIn is one reassembled host-width input word, emitted once per
// completed accumulation on the command-input channel.
type WordIn struct {
	sim.MsgMeta

	// FirstWord tells whether this is the first word since slave select
	// asserted, for slave-mode framing.
	FirstWord   bool
	LastSegment bool
	Mode        IOMode
	BitCount    int
	Data        uint32
}

// Meta returns the meta data of the word.
func (w *WordIn) Meta() *sim.MsgMeta {
	return &w.MsgMeta
}

// Clone returns a copy of the word with a new ID.
func (w *WordIn) Clone() sim.Msg {
	cloneMsg := *w
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}
