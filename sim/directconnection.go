package sim

// A DirectConnection delivers messages to their destination ports in the
// next cycle, with no bandwidth limit.
type DirectConnection struct {
	*TickingComponent

	nextPortID int
	ports      []Port
	portByName map[RemotePort]Port
}

// NewDirectConnection creates a new DirectConnection.
func NewDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)
	c.portByName = make(map[RemotePort]Port)

	return c
}

// PlugIn connects a port to this connection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	c.ports = append(c.ports, port)
	c.portByName[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug removes a port from this connection.
func (c *DirectConnection) Unplug(_ Port) {
	panic("not implemented")
}

// NotifyAvailable is called by a port to notify that the port can receive
// messages again.
func (c *DirectConnection) NotifyAvailable(p Port) {
	for _, port := range c.ports {
		if port == p {
			continue
		}

		port.NotifyAvailable()
	}

	c.TickNow()
}

// NotifySend is called by a port to notify that a message is ready to be
// forwarded.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick forwards queued messages, one source port after another.
func (c *DirectConnection) Tick() bool {
	madeProgress := false

	for i := 0; i < len(c.ports); i++ {
		portID := (i + c.nextPortID) % len(c.ports)
		port := c.ports[portID]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	c.nextPortID = (c.nextPortID + 1) % len(c.ports)

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst, found := c.portByName[head.Meta().Dst]
		if !found {
			panic("destination port " + string(head.Meta().Dst) +
				" is not connected to " + c.Name())
		}

		err := dst.Deliver(head)
		if err != nil {
			break
		}

		madeProgress = true
		port.RetrieveOutgoing()
	}

	return madeProgress
}
