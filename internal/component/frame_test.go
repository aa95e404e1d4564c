package component

import (
	"bytes"
	"testing"
)

func TestFrameClone(t *testing.T) {
	f := &Frame{
		Payload:  []byte{0x01, 0x02},
		RemoteID: RemoteIDPtr(0x500),
		Raw:      true,
	}

	c := f.Clone()
	if !bytes.Equal(c.Payload, f.Payload) {
		t.Errorf("Clone() payload = %x, want %x", c.Payload, f.Payload)
	}
	if c.RemoteID == nil || *c.RemoteID != 0x500 {
		t.Errorf("Clone() remote id = %v, want 0x500", c.RemoteID)
	}
	if !c.Raw {
		t.Error("Clone() raw = false, want flag preserved")
	}

	// Independent buffers: mutating the clone leaves the original alone.
	c.Payload[0] = 0xFF
	*c.RemoteID = 0
	if f.Payload[0] != 0x01 {
		t.Error("clone shares payload buffer with original")
	}
	if *f.RemoteID != 0x500 {
		t.Error("clone shares remote id pointer with original")
	}
}

func TestFrameCloneNil(t *testing.T) {
	var f *Frame
	if f.Clone() != nil {
		t.Error("Clone() of nil frame != nil")
	}

	empty := &Frame{}
	c := empty.Clone()
	if c == nil {
		t.Fatal("Clone() of empty frame = nil")
	}
	if c.Payload != nil || c.RemoteID != nil {
		t.Errorf("Clone() of empty frame = %+v, want empty", c)
	}
}
