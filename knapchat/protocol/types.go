package protocol

type MessageType uint8

const (
	// MessageTypeHello carries the sealed identification.
	MessageTypeHello   MessageType = 1
	MessageTypeAck     MessageType = 2
	MessageTypeHalfKey MessageType = 3
	// MessageTypeData carries stream-cipher ciphertext.
	MessageTypeData MessageType = 4
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeHello:
		return "HELLO"
	case MessageTypeAck:
		return "ACK"
	case MessageTypeHalfKey:
		return "HALF_KEY"
	case MessageTypeData:
		return "DATA"
	default:
		return "UNKNOWN"
	}
}

func (t MessageType) valid() bool {
	return t >= MessageTypeHello && t <= MessageTypeData
}
