package wire

import (
	"fmt"
	"sort"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-overlay/pkg/types"
)

// 字段编号
const (
	fieldType protowire.Number = 1

	// Hello
	fieldVersion   protowire.Number = 2
	fieldPubKey    protowire.Number = 3
	fieldExpected  protowire.Number = 4
	fieldNonce     protowire.Number = 5
	fieldEchoNonce protowire.Number = 6
	fieldState     protowire.Number = 7
	fieldSignature protowire.Number = 8

	// Disconnecting
	fieldReason protowire.Number = 2
	fieldDetail protowire.Number = 3

	// Ping / Pong
	fieldPingNonce protowire.Number = 2

	// NodeState 条目
	fieldEntryCurrency protowire.Number = 1
	fieldEntryID       protowire.Number = 2
)

// Encode 编码消息体（不含长度前缀）
func Encode(p Packet) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: nil packet", ErrMalformedPacket)
	}
	b := protowire.AppendTag(nil, fieldType, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(p.Type()))

	switch m := p.(type) {
	case *Hello:
		b = appendHello(b, m)
	case *Disconnecting:
		b = protowire.AppendTag(b, fieldReason, protowire.VarintType)
		b = protowire.AppendVarint(b, uint64(m.Reason))
		if m.Detail != "" {
			b = protowire.AppendTag(b, fieldDetail, protowire.BytesType)
			b = protowire.AppendString(b, m.Detail)
		}
	case *NodeStateUpdate:
		b = appendState(b, m.State)
	case *Ping:
		b = protowire.AppendTag(b, fieldPingNonce, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Nonce)
	case *Pong:
		b = protowire.AppendTag(b, fieldPingNonce, protowire.VarintType)
		b = protowire.AppendVarint(b, m.Nonce)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownPacket, p)
	}
	return b, nil
}

func appendHello(b []byte, h *Hello) []byte {
	b = protowire.AppendTag(b, fieldVersion, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(h.Version))
	b = appendBytesField(b, fieldPubKey, []byte(h.PubKey))
	b = appendBytesField(b, fieldExpected, []byte(h.ExpectedPubKey))
	b = appendBytesField(b, fieldNonce, h.Nonce)
	b = appendBytesField(b, fieldEchoNonce, h.EchoNonce)
	b = appendState(b, h.State)
	b = appendBytesField(b, fieldSignature, h.Signature)
	return b
}

func appendBytesField(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

// appendState 按币种排序写出条目，保证签名输入确定
func appendState(b []byte, s types.NodeState) []byte {
	currencies := make([]string, 0, len(s.Identifiers))
	for c := range s.Identifiers {
		currencies = append(currencies, c)
	}
	sort.Strings(currencies)

	for _, c := range currencies {
		var entry []byte
		entry = protowire.AppendTag(entry, fieldEntryCurrency, protowire.BytesType)
		entry = protowire.AppendString(entry, c)
		entry = protowire.AppendTag(entry, fieldEntryID, protowire.BytesType)
		entry = protowire.AppendString(entry, s.Identifiers[c])

		b = protowire.AppendTag(b, fieldState, protowire.BytesType)
		b = protowire.AppendBytes(b, entry)
	}
	return b
}

// Decode 解码消息体
func Decode(data []byte) (Packet, error) {
	num, typ, n := protowire.ConsumeTag(data)
	if n < 0 || num != fieldType || typ != protowire.VarintType {
		return nil, fmt.Errorf("%w: missing type field", ErrMalformedPacket)
	}
	data = data[n:]
	t, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
	}
	data = data[n:]

	var p Packet
	var visit func(protowire.Number, protowire.Type, []byte) (int, error)

	switch Type(t) {
	case TypeHello:
		h := &Hello{State: types.NewNodeState()}
		p, visit = h, h.decodeField
	case TypeDisconnecting:
		d := &Disconnecting{}
		p, visit = d, d.decodeField
	case TypeNodeStateUpdate:
		u := &NodeStateUpdate{State: types.NewNodeState()}
		p, visit = u, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
			if num == fieldState && typ == protowire.BytesType {
				return consumeStateEntry(b, &u.State)
			}
			return -1, nil
		}
	case TypePing:
		m := &Ping{}
		p, visit = m, nonceVisitor(&m.Nonce)
	case TypePong:
		m := &Pong{}
		p, visit = m, nonceVisitor(&m.Nonce)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownPacket, t)
	}

	if err := consumeFields(data, visit); err != nil {
		return nil, err
	}
	return p, nil
}

// consumeFields 遍历字段；visit 返回 -1 表示未处理，交由通用逻辑跳过
func consumeFields(data []byte, visit func(protowire.Number, protowire.Type, []byte) (int, error)) error {
	for len(data) > 0 {
		num, typ, n := protowire.ConsumeTag(data)
		if n < 0 {
			return fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
		}
		data = data[n:]

		n, err := visit(num, typ, data)
		if err != nil {
			return err
		}
		if n < 0 {
			n = protowire.ConsumeFieldValue(num, typ, data)
			if n < 0 {
				return fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
			}
		}
		data = data[n:]
	}
	return nil
}

func (h *Hello) decodeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch {
	case num == fieldVersion && typ == protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, malformed(n)
		}
		h.Version = uint32(v)
		return n, nil
	case num == fieldState && typ == protowire.BytesType:
		return consumeStateEntry(b, &h.State)
	case typ == protowire.BytesType:
		var dst *[]byte
		switch num {
		case fieldNonce:
			dst = &h.Nonce
		case fieldEchoNonce:
			dst = &h.EchoNonce
		case fieldSignature:
			dst = &h.Signature
		case fieldPubKey, fieldExpected:
			v, n := protowire.ConsumeBytes(b)
			if n < 0 {
				return 0, malformed(n)
			}
			if num == fieldPubKey {
				h.PubKey = string(v)
			} else {
				h.ExpectedPubKey = string(v)
			}
			return n, nil
		default:
			return -1, nil
		}
		v, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, malformed(n)
		}
		*dst = append([]byte(nil), v...)
		return n, nil
	}
	return -1, nil
}

func (d *Disconnecting) decodeField(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
	switch {
	case num == fieldReason && typ == protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, malformed(n)
		}
		if v > 0xffff {
			return 0, fmt.Errorf("%w: reason %d out of range", ErrMalformedPacket, v)
		}
		d.Reason = types.DisconnectReason(v)
		return n, nil
	case num == fieldDetail && typ == protowire.BytesType:
		v, n := protowire.ConsumeString(b)
		if n < 0 {
			return 0, malformed(n)
		}
		d.Detail = v
		return n, nil
	}
	return -1, nil
}

func nonceVisitor(dst *uint64) func(protowire.Number, protowire.Type, []byte) (int, error) {
	return func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != fieldPingNonce || typ != protowire.VarintType {
			return -1, nil
		}
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, malformed(n)
		}
		*dst = v
		return n, nil
	}
}

func consumeStateEntry(b []byte, s *types.NodeState) (int, error) {
	entry, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, malformed(n)
	}

	var currency, id string
	var haveCurrency bool
	err := consumeFields(entry, func(num protowire.Number, typ protowire.Type, eb []byte) (int, error) {
		if typ != protowire.BytesType || (num != fieldEntryCurrency && num != fieldEntryID) {
			return -1, nil
		}
		v, m := protowire.ConsumeString(eb)
		if m < 0 {
			return 0, malformed(m)
		}
		if num == fieldEntryCurrency {
			currency, haveCurrency = v, true
		} else {
			id = v
		}
		return m, nil
	})
	if err != nil {
		return 0, err
	}
	if !haveCurrency || currency == "" {
		return 0, fmt.Errorf("%w: state entry without currency", ErrMalformedPacket)
	}
	if s.Identifiers == nil {
		s.Identifiers = make(map[string]string)
	}
	s.Identifiers[currency] = id
	return n, nil
}

func malformed(n int) error {
	return fmt.Errorf("%w: %v", ErrMalformedPacket, protowire.ParseError(n))
}
