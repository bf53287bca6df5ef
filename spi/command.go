package spi

import "github.com/sockitlab/spisim/sim"

// A Command is a host-issued transfer request. Length counts serial clock
// cycles; the data register supplies Length x Lanes data bits, MSB first.
// A command is immutable once admitted into the core.
type Command struct {
	sim.MsgMeta

	Direction         Direction
	Length            int
	Mode              IOMode
	ClockEnable       bool
	SlaveSelectEnable bool
	DataOutputEnable  bool
	DataInputEnable   bool
	LastSegment       bool
	Data              uint32
}

// Meta returns the meta data of the command.
func (c *Command) Meta() *sim.MsgMeta {
	return &c.MsgMeta
}

// Clone returns a copy of the command with a new ID.
func (c *Command) Clone() sim.Msg {
	cloneMsg := *c
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// CommandBuilder builds commands.
type CommandBuilder struct {
	src, dst          sim.RemotePort
	direction         Direction
	length            int
	mode              IOMode
	clockEnable       bool
	slaveSelectEnable bool
	dataOutputEnable  bool
	dataInputEnable   bool
	lastSegment       bool
	data              uint32
}

// MakeCommandBuilder returns a builder with the defaults of a plain
// single-segment SPI output transfer.
func MakeCommandBuilder() CommandBuilder {
	return CommandBuilder{
		direction:         Out,
		mode:              Spi,
		clockEnable:       true,
		slaveSelectEnable: true,
		dataOutputEnable:  true,
		lastSegment:       true,
	}
}

// WithSrc sets the source of the command.
func (b CommandBuilder) WithSrc(src sim.RemotePort) CommandBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the command.
func (b CommandBuilder) WithDst(dst sim.RemotePort) CommandBuilder {
	b.dst = dst
	return b
}

// WithDirection sets the transfer direction.
func (b CommandBuilder) WithDirection(d Direction) CommandBuilder {
	b.direction = d
	return b
}

// WithLength sets the transfer length in serial clock cycles.
func (b CommandBuilder) WithLength(length int) CommandBuilder {
	b.length = length
	return b
}

// WithMode sets the IO mode.
func (b CommandBuilder) WithMode(mode IOMode) CommandBuilder {
	b.mode = mode
	return b
}

// WithClockEnable sets whether the serial clock runs during the transfer.
func (b CommandBuilder) WithClockEnable(enable bool) CommandBuilder {
	b.clockEnable = enable
	return b
}

// WithSlaveSelectEnable sets whether slave select asserts for the transfer.
func (b CommandBuilder) WithSlaveSelectEnable(enable bool) CommandBuilder {
	b.slaveSelectEnable = enable
	return b
}

// WithDataOutputEnable sets whether the output lanes drive.
func (b CommandBuilder) WithDataOutputEnable(enable bool) CommandBuilder {
	b.dataOutputEnable = enable
	return b
}

// WithDataInputEnable sets whether the input lanes are sampled.
func (b CommandBuilder) WithDataInputEnable(enable bool) CommandBuilder {
	b.dataInputEnable = enable
	return b
}

// WithLastSegment marks the command as the final segment of its frame.
func (b CommandBuilder) WithLastSegment(last bool) CommandBuilder {
	b.lastSegment = last
	return b
}

// WithData sets the left-justified data register contents.
func (b CommandBuilder) WithData(data uint32) CommandBuilder {
	b.data = data
	return b
}

// Build creates the command.
func (b CommandBuilder) Build() *Command {
	return &Command{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Direction:         b.direction,
		Length:            b.length,
		Mode:              b.mode,
		ClockEnable:       b.clockEnable,
		SlaveSelectEnable: b.slaveSelectEnable,
		DataOutputEnable:  b.dataOutputEnable,
		DataInputEnable:   b.dataInputEnable,
		LastSegment:       b.lastSegment,
		Data:              b.data,
	}
}
