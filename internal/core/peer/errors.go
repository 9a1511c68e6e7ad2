package peer

import "errors"

// ErrHandshakeStarted 同一 Peer 上重复调用 Handshake
var ErrHandshakeStarted = errors.New("handshake already started")
