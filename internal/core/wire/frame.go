package wire

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiformats/go-varint"
)

// WriteFrame 编码并写出一帧
//
// 长度前缀与消息体在一次 Write 中写出，调用方负责串行化并发写。
func WriteFrame(w io.Writer, p Packet, maxSize int) error {
	body, err := Encode(p)
	if err != nil {
		return err
	}
	if maxSize > 0 && len(body) > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, len(body), maxSize)
	}

	buf := make([]byte, 0, varint.UvarintSize(uint64(len(body)))+len(body))
	buf = append(buf, varint.ToUvarint(uint64(len(body)))...)
	buf = append(buf, body...)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// Reader 带缓冲的帧读取器
type Reader struct {
	r       *bufio.Reader
	maxSize int
}

// NewReader 创建帧读取器，maxSize <= 0 时使用 DefaultMaxMessageSize
func NewReader(r io.Reader, maxSize int) *Reader {
	if maxSize <= 0 {
		maxSize = DefaultMaxMessageSize
	}
	return &Reader{r: bufio.NewReader(r), maxSize: maxSize}
}

// ReadFrame 读取一帧并解码
//
// 超长帧返回 ErrMessageTooLarge，不读取消息体。
func (r *Reader) ReadFrame() (Packet, error) {
	length, err := varint.ReadUvarint(r.r)
	if err != nil {
		return nil, err
	}
	if length > uint64(r.maxSize) {
		return nil, fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, length, r.maxSize)
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r.r, body); err != nil {
		return nil, err
	}
	return Decode(body)
}
