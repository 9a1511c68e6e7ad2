package transport

import "errors"

// ErrUnsupportedProtocol 配置了未知的传输协议
var ErrUnsupportedProtocol = errors.New("unsupported transport protocol")
