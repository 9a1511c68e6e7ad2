package wire

import "errors"

var (
	// ErrMessageTooLarge 消息超过最大长度
	ErrMessageTooLarge = errors.New("message too large")

	// ErrMalformedPacket 消息体无法解析
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrUnknownPacket 未知的消息类型
	ErrUnknownPacket = errors.New("unknown packet type")
)
