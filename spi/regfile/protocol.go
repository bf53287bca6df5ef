package regfile

import "github.com/sockitlab/spisim/sim"

// A RegReadReq reads one register.
type RegReadReq struct {
	sim.MsgMeta

	Addr int
}

// Meta returns the meta data of the request.
func (r *RegReadReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *RegReadReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A RegWriteReq writes one register.
type RegWriteReq struct {
	sim.MsgMeta

	Addr int
	Data uint32
}

// Meta returns the meta data of the request.
func (r *RegWriteReq) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a new ID.
func (r *RegWriteReq) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// A RegReadRsp carries a register value back to the requester. Writes
// complete with a GeneralRsp.
type RegReadRsp struct {
	sim.MsgMeta

	RespondTo string
	Data      uint32
}

// Meta returns the meta data of the response.
func (r *RegReadRsp) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *RegReadRsp) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the original request.
func (r *RegReadRsp) GetRspTo() string {
	return r.RespondTo
}

// ReadReqBuilder builds register read requests.
type ReadReqBuilder struct {
	src, dst sim.RemotePort
	addr     int
}

// WithSrc sets the source of the request.
func (b ReadReqBuilder) WithSrc(src sim.RemotePort) ReadReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request.
func (b ReadReqBuilder) WithDst(dst sim.RemotePort) ReadReqBuilder {
	b.dst = dst
	return b
}

// WithAddr sets the register address.
func (b ReadReqBuilder) WithAddr(addr int) ReadReqBuilder {
	b.addr = addr
	return b
}

// Build creates the request.
func (b ReadReqBuilder) Build() *RegReadReq {
	return &RegReadReq{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Addr: b.addr,
	}
}

// WriteReqBuilder builds register write requests.
type WriteReqBuilder struct {
	src, dst sim.RemotePort
	addr     int
	data     uint32
}

// WithSrc sets the source of the request.
func (b WriteReqBuilder) WithSrc(src sim.RemotePort) WriteReqBuilder {
	b.src = src
	return b
}

// WithDst sets the destination of the request.
func (b WriteReqBuilder) WithDst(dst sim.RemotePort) WriteReqBuilder {
	b.dst = dst
	return b
}

// WithAddr sets the register address.
func (b WriteReqBuilder) WithAddr(addr int) WriteReqBuilder {
	b.addr = addr
	return b
}

// WithData sets the value to write.
func (b WriteReqBuilder) WithData(data uint32) WriteReqBuilder {
	b.data = data
	return b
}

// Build creates the request.
func (b WriteReqBuilder) Build() *RegWriteReq {
	return &RegWriteReq{
		MsgMeta: sim.MsgMeta{
			ID:  sim.GetIDGenerator().Generate(),
			Src: b.src,
			Dst: b.dst,
		},
		Addr: b.addr,
		Data: b.data,
	}
}
