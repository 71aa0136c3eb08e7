package protocol

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/errs"
)

const (
	// MaxFramePayload limits a single protocol frame payload.
	MaxFramePayload = 1 << 20 // 1 MiB
)

var (
	ErrFrameTooLarge  = errors.Wrap(errs.ErrProtocol, "protocol frame payload too large")
	ErrInvalidType    = errors.Wrap(errs.ErrProtocol, "protocol invalid message type")
	ErrUnexpectedType = errors.Wrap(errs.ErrProtocol, "protocol unexpected message type")
)

// Frame is the basic wire container.
// Format:
//
//	1 byte: type
//	4 bytes: payload length (big endian)
//	N bytes: payload
type Frame struct {
	Type    MessageType
	Payload []byte
}

func WriteFrame(w io.Writer, f Frame) error {
	if !f.Type.valid() {
		return ErrInvalidType
	}
	if len(f.Payload) > MaxFramePayload {
		return ErrFrameTooLarge
	}

	bw := bufio.NewWriterSize(w, 5+len(f.Payload))
	_ = bw.WriteByte(byte(f.Type))
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(f.Payload)))
	_, _ = bw.Write(lenBuf[:])
	_, _ = bw.Write(f.Payload)
	return errs.Mark(bw.Flush(), errs.ErrNetwork)
}

// ReadFrame reads exactly one frame. It never reads past the end of the
// frame, so the caller may keep using r afterwards.
func ReadFrame(r io.Reader) (Frame, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Frame{}, errs.Mark(err, errs.ErrNetwork)
	}
	mt := MessageType(hdr[0])
	if !mt.valid() {
		return Frame{}, errors.Wrapf(ErrInvalidType, "type %d", hdr[0])
	}
	payloadLen := binary.BigEndian.Uint32(hdr[1:])
	if payloadLen > MaxFramePayload {
		return Frame{}, errors.Wrapf(ErrFrameTooLarge, "%d", payloadLen)
	}
	payload := make([]byte, payloadLen)
	if _, err := io.ReadFull(r, payload); err != nil {
		return Frame{}, errs.Mark(err, errs.ErrNetwork)
	}
	return Frame{Type: mt, Payload: payload}, nil
}

// ExpectFrame reads one frame and checks its type.
func ExpectFrame(r io.Reader, want MessageType) ([]byte, error) {
	f, err := ReadFrame(r)
	if err != nil {
		return nil, err
	}
	if f.Type != want {
		return nil, errors.Wrapf(ErrUnexpectedType, "got %s, want %s", f.Type, want)
	}
	return f.Payload, nil
}
