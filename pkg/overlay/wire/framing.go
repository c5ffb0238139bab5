// Package wire implements the length-prefixed framing adapter: the sole
// boundary where partial-read semantics over a stream connection are
// handled. It does not interpret the payload beyond decoding it into a
// types.PeerMessage.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"net"

	"github.com/lucadibello/p2p-chat/pkg/overlay/types"
)

const headerSize = 4

// Send serializes msg, writes the 4-byte big-endian length prefix and
// the payload. Either write failing is reported as types.ErrTransport.
func Send(conn net.Conn, msg *types.PeerMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", types.ErrTransport, err)
	}

	header := make([]byte, headerSize)
	binary.BigEndian.PutUint32(header, uint32(len(payload)))

	if _, err := conn.Write(header); err != nil {
		return fmt.Errorf("%w: write length prefix: %w", types.ErrTransport, err)
	}
	if _, err := conn.Write(payload); err != nil {
		return fmt.Errorf("%w: write payload: %w", types.ErrTransport, err)
	}
	return nil
}

// Receive reads one framed message off conn: a 4-byte big-endian length
// followed by exactly that many payload bytes. A short read on the
// length prefix is reported as "connection closed"; a short read on the
// payload is reported as "incomplete message". Both are
// types.ErrTransport.
func Receive(conn net.Conn) (*types.PeerMessage, error) {
	header := make([]byte, headerSize)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, fmt.Errorf("%w: connection closed during size reception: %w", types.ErrTransport, err)
	}

	length := binary.BigEndian.Uint32(header)
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(conn, payload); err != nil {
			return nil, fmt.Errorf("%w: incomplete message: %w", types.ErrTransport, err)
		}
	}

	var msg types.PeerMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return nil, fmt.Errorf("%w: decode message: %v", types.ErrProtocolViolation, err)
	}
	return &msg, nil
}
