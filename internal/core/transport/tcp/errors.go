package tcp

import "errors"

// ErrTransportClosed 传输已关闭
var ErrTransportClosed = errors.New("tcp transport closed")
