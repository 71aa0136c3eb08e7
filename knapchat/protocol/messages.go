package protocol

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"github.com/TheusHen/knapchat/knapchat/crypto/knapsack"
	"github.com/TheusHen/knapchat/knapchat/crypto/solitaire"
	"github.com/TheusHen/knapchat/knapchat/errs"
	"github.com/TheusHen/knapchat/knapchat/identity"
)

// AckOK is the only status that lets a handshake proceed.
const AckOK = "ok"

var (
	ErrMalformed       = errors.Wrap(errs.ErrProtocol, "protocol malformed message")
	ErrMissingClientID = errors.Wrap(errs.ErrProtocol, "protocol hello without client_id")
	ErrMissingHalfKey  = errors.Wrap(errs.ErrProtocol, "protocol message without half_key")
)

// Hello identifies the connecting party to the listener.
type Hello struct {
	ClientID identity.ClientID `json:"client_id"`
}

// Ack answers a Hello.
type Ack struct {
	Status string `json:"status"`
}

// HalfKey carries one party's contribution to the common key.
type HalfKey struct {
	HalfKey uint64 `json:"half_key"`
}

// AppMessage is one turn of the conversation. Over ends it.
type AppMessage struct {
	Over    bool   `json:"over"`
	Message string `json:"message,omitempty"`
}

// Seal serializes v as JSON and encrypts it under pub. The result is the JSON
// array of ciphertext integers.
func Seal(v any, pub knapsack.PublicKey) ([]byte, error) {
	plain, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "protocol: encode message")
	}
	ct, err := identity.Seal(plain, pub)
	if err != nil {
		return nil, err
	}
	return json.Marshal(ct)
}

// Open reverses Seal with the recipient's keypair and decodes into v.
func Open(payload []byte, kp identity.KeyPair, v any) error {
	var ct knapsack.Ciphertext
	if err := json.Unmarshal(payload, &ct); err != nil {
		return errors.Wrapf(ErrMalformed, "ciphertext: %v", err)
	}
	plain, err := kp.Open(ct)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(plain, v); err != nil {
		return errors.Wrapf(ErrMalformed, "plaintext: %v", err)
	}
	return nil
}

// WriteSealed seals v for pub and writes it as one frame of type t.
func WriteSealed(w io.Writer, t MessageType, v any, pub knapsack.PublicKey) error {
	payload, err := Seal(v, pub)
	if err != nil {
		return err
	}
	return WriteFrame(w, Frame{Type: t, Payload: payload})
}

// ReadSealed reads one frame of type t and opens it into v.
func ReadSealed(r io.Reader, t MessageType, kp identity.KeyPair, v any) error {
	payload, err := ExpectFrame(r, t)
	if err != nil {
		return err
	}
	return Open(payload, kp, v)
}

// ReadHello reads the identification. A missing or non-integer client_id is
// ErrMissingClientID.
func ReadHello(r io.Reader, kp identity.KeyPair) (Hello, error) {
	var raw struct {
		ClientID json.RawMessage `json:"client_id"`
	}
	if err := ReadSealed(r, MessageTypeHello, kp, &raw); err != nil {
		return Hello{}, err
	}
	if len(raw.ClientID) == 0 || string(raw.ClientID) == "null" {
		return Hello{}, ErrMissingClientID
	}
	var v int64
	if err := json.Unmarshal(raw.ClientID, &v); err != nil {
		return Hello{}, errors.Wrapf(ErrMissingClientID, "%s", raw.ClientID)
	}
	return Hello{ClientID: identity.ClientID(v)}, nil
}

// ReadHalfKey reads the peer's half-key.
func ReadHalfKey(r io.Reader, kp identity.KeyPair) (uint64, error) {
	var raw struct {
		HalfKey *uint64 `json:"half_key"`
	}
	if err := ReadSealed(r, MessageTypeHalfKey, kp, &raw); err != nil {
		return 0, err
	}
	if raw.HalfKey == nil {
		return 0, ErrMissingHalfKey
	}
	return *raw.HalfKey, nil
}

// WriteData encrypts m with the stream cipher and writes it as a Data frame.
func WriteData(w io.Writer, c *solitaire.StreamCipher, m AppMessage) error {
	plain, err := json.Marshal(m)
	if err != nil {
		return errors.Wrap(err, "protocol: encode message")
	}
	return WriteFrame(w, Frame{Type: MessageTypeData, Payload: c.Encode(plain)})
}

// ReadData reads one Data frame and decrypts it with the stream cipher. A
// desynchronized keystream shows up as ErrMalformed.
func ReadData(r io.Reader, c *solitaire.StreamCipher) (AppMessage, error) {
	payload, err := ExpectFrame(r, MessageTypeData)
	if err != nil {
		return AppMessage{}, err
	}
	var m AppMessage
	if err := json.Unmarshal(c.Decode(payload), &m); err != nil {
		return AppMessage{}, errors.Wrapf(ErrMalformed, "data: %v", err)
	}
	return m, nil
}
