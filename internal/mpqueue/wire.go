package mpqueue

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/nerrad567/testrig-core/internal/component"
)

// Wire operation codes.
const (
	opPut = "put"
	opGet = "get"
)

// maxWireFrame bounds a single wire message. Generous for test payloads
// while keeping a corrupt length prefix from allocating gigabytes.
const maxWireFrame = 16 << 20 // 16MB

// request is one peer-to-host operation.
type request struct {
	Op        string           `msgpack:"op"`
	Frame     *component.Frame `msgpack:"frame,omitempty"`
	TimeoutMS int64            `msgpack:"timeout_ms,omitempty"`
}

// response is the host's answer to a request.
type response struct {
	OK    bool             `msgpack:"ok"`
	Err   string           `msgpack:"err,omitempty"`
	Empty bool             `msgpack:"empty,omitempty"`
	Frame *component.Frame `msgpack:"frame,omitempty"`
}

// writeMessage writes a length-prefixed msgpack message.
func writeMessage(conn net.Conn, v any) error {
	body, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding wire message: %w", err)
	}

	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, uint32(len(body)))
	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("writing wire header: %w", err)
	}
	if _, err := conn.Write(body); err != nil {
		return fmt.Errorf("writing wire body: %w", err)
	}
	return nil
}

// readMessage reads a length-prefixed msgpack message into v.
func readMessage(conn net.Conn, v any) error {
	header := make([]byte, 4)
	if _, err := io.ReadFull(conn, header); err != nil {
		return err
	}

	size := binary.BigEndian.Uint32(header)
	if size > maxWireFrame {
		return fmt.Errorf("%w: message size %d exceeds limit", ErrProtocol, size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return err
	}
	if err := msgpack.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
	return nil
}
