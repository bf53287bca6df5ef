package sim

// A Msg is a piece of information transferred between components.
type Msg interface {
	Meta() *MsgMeta
	Clone() Msg
}

// MsgMeta contains the meta data attached to every message.
type MsgMeta struct {
	ID       string
	Src, Dst RemotePort
}

// Rsp is a message that indicates the completion of a request.
type Rsp interface {
	Msg
	GetRspTo() string
}

// GeneralRsp is a generic response indicating the completion of a request.
type GeneralRsp struct {
	MsgMeta

	OriginalReq Msg
}

// Meta returns the meta data of the message.
func (r *GeneralRsp) Meta() *MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the response with a new ID.
func (r *GeneralRsp) Clone() Msg {
	cloneMsg := *r
	cloneMsg.ID = GetIDGenerator().Generate()

	return &cloneMsg
}

// GetRspTo returns the ID of the original request.
func (r *GeneralRsp) GetRspTo() string {
	return r.OriginalReq.Meta().ID
}

// GeneralRspBuilder builds general responses.
type GeneralRspBuilder struct {
	Src, Dst    RemotePort
	OriginalReq Msg
}

// WithSrc sets the source of the response.
func (c GeneralRspBuilder) WithSrc(src RemotePort) GeneralRspBuilder {
	c.Src = src
	return c
}

// WithDst sets the destination of the response.
func (c GeneralRspBuilder) WithDst(dst RemotePort) GeneralRspBuilder {
	c.Dst = dst
	return c
}

// WithOriginalReq sets the request the response completes.
func (c GeneralRspBuilder) WithOriginalReq(req Msg) GeneralRspBuilder {
	c.OriginalReq = req
	return c
}

// Build creates the response.
func (c GeneralRspBuilder) Build() *GeneralRsp {
	return &GeneralRsp{
		MsgMeta: MsgMeta{
			ID:  GetIDGenerator().Generate(),
			Src: c.Src,
			Dst: c.Dst,
		},
		OriginalReq: c.OriginalReq,
	}
}
