package sim

// SendError marks a failure to send or deliver a message.
type SendError struct{}

// NewSendError creates a SendError.
func NewSendError() *SendError {
	return new(SendError)
}

// A Connection delivers messages from source ports to destination ports.
type Connection interface {
	Named
	Hookable

	PlugIn(port Port)
	Unplug(port Port)

	// NotifyAvailable is called by a port to notify that the port can
	// receive messages again.
	NotifyAvailable(port Port)

	// NotifySend is called by a port to notify that a message is ready to
	// be picked up.
	NotifySend()
}
