package component

// Frame is the message envelope exchanged at channel boundaries.
//
// Payload carries the raw message bytes; a nil Payload is the "no message"
// marker used by receive timeouts. RemoteID is an optional origin or
// destination identifier (a CAN arbitration ID, a UDS address, a socket
// port - the rig core does not interpret it). Raw marks a payload that
// should bypass any encoding a connector would otherwise apply.
type Frame struct {
	Payload  []byte  `json:"msg" msgpack:"msg"`
	RemoteID *uint32 `json:"remote_id,omitempty" msgpack:"remote_id,omitempty"`
	Raw      bool    `json:"raw,omitempty" msgpack:"raw,omitempty"`
}

// Clone returns an independent copy of the frame. Broadcast paths hand each
// consumer its own copy so one reader mutating a payload cannot corrupt
// another reader's view.
func (f *Frame) Clone() *Frame {
	if f == nil {
		return nil
	}
	c := &Frame{Raw: f.Raw}
	if f.Payload != nil {
		c.Payload = make([]byte, len(f.Payload))
		copy(c.Payload, f.Payload)
	}
	if f.RemoteID != nil {
		id := *f.RemoteID
		c.RemoteID = &id
	}
	return c
}

// RemoteIDPtr is a convenience for building frames with a routing identifier.
func RemoteIDPtr(id uint32) *uint32 {
	return &id
}
