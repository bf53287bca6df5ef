package datarecording

import (
	"github.com/sockitlab/spisim/sim"
	"github.com/sockitlab/spisim/spi"
	"github.com/sockitlab/spisim/spi/repack"
	"github.com/sockitlab/spisim/spi/serdes"
)

// An EdgeTrace is one recorded serial clock edge.
type EdgeTrace struct {
	Time        float64
	Sclk        bool
	Data0       bool
	Data1       bool
	Data2       bool
	Data3       bool
	SlaveSelect uint32
}

// EdgeTraceTable is the table edge traces are recorded into.
const EdgeTraceTable = "edge_trace"

// EdgeTracer records the pin state of every serial clock edge. Attach it
// to a serializer with AcceptHook.
type EdgeTracer struct {
	recorder DataRecorder
}

// NewEdgeTracer creates a tracer and its table.
func NewEdgeTracer(recorder DataRecorder) *EdgeTracer {
	recorder.CreateTable(EdgeTraceTable, EdgeTrace{})

	return &EdgeTracer{recorder: recorder}
}

// Func records one edge.
func (t *EdgeTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != serdes.HookPosEdge {
		return
	}

	state := ctx.Item.(serdes.PinState)
	comp := ctx.Domain.(*serdes.Comp)

	t.recorder.InsertData(EdgeTraceTable, EdgeTrace{
		Time:        float64(comp.CurrentTime()),
		Sclk:        state.SclkOut,
		Data0:       state.DataOut[0],
		Data1:       state.DataOut[1],
		Data2:       state.DataOut[2],
		Data3:       state.DataOut[3],
		SlaveSelect: state.SlaveSelect & state.SlaveSelectEnable,
	})
}

// A TransferTrace is one queue transfer handed to the serial domain.
type TransferTrace struct {
	Time        float64
	Mode        string
	UnitLength  int
	LastUnit    bool
	LastSegment bool
	Lane0       uint32
	Lane1       uint32
	Lane2       uint32
	Lane3       uint32
}

// TransferTraceTable is the table queue transfers are recorded into.
const TransferTraceTable = "transfer_trace"

// TransferTracer records every queue transfer the output repackager emits.
// Attach it to an Outward with AcceptHook.
type TransferTracer struct {
	recorder DataRecorder
}

// NewTransferTracer creates a tracer and its table.
func NewTransferTracer(recorder DataRecorder) *TransferTracer {
	recorder.CreateTable(TransferTraceTable, TransferTrace{})

	return &TransferTracer{recorder: recorder}
}

// Func records one transfer.
func (t *TransferTracer) Func(ctx sim.HookCtx) {
	if ctx.Pos != repack.HookPosTransfer {
		return
	}

	xfer := ctx.Item.(*spi.QueueTransfer)
	comp := ctx.Domain.(*repack.Outward)

	t.recorder.InsertData(TransferTraceTable, TransferTrace{
		Time:        float64(comp.CurrentTime()),
		Mode:        xfer.Mode.String(),
		UnitLength:  xfer.UnitLength,
		LastUnit:    xfer.IsLastUnit,
		LastSegment: xfer.LastSegment,
		Lane0:       xfer.LaneData[0],
		Lane1:       xfer.LaneData[1],
		Lane2:       xfer.LaneData[2],
		Lane3:       xfer.LaneData[3],
	})
}
