package types

import (
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "cannot attempt connection to self", ErrSelfConnection.Error())
	assert.Equal(t, "already connected", ErrAlreadyConnected.Error())
	assert.Equal(t, "Connection retry attempts to peer were revoked", ErrRetryRevoked.Error())
}

func TestConnectFailedError(t *testing.T) {
	cause := &net.OpError{Op: "dial", Err: errors.New("connection refused")}
	err := fmt.Errorf("attempt 3: %w", &ConnectFailedError{
		Address: PeerAddress{Host: "127.0.0.1", Port: 9735},
		Err:     cause,
	})

	assert.Contains(t, err.Error(), "could not connect to peer at 127.0.0.1:9735")
	assert.ErrorIs(t, err, ErrConnectFailed)
	var opErr *net.OpError
	assert.ErrorAs(t, err, &opErr)
}

func TestDisconnectedError(t *testing.T) {
	err := &DisconnectedError{
		URI:    NewPeerURI("0201", "localhost", 9000),
		Reason: AuthFailureInvalidTarget,
	}

	assert.Equal(t, "Peer 0201@localhost:9000 disconnected from us due to AuthFailureInvalidTarget", err.Error())
	assert.ErrorIs(t, err, ErrAuthFailureInvalidTarget)
	assert.ErrorIs(t, err, ErrPeerDisconnected)
	assert.NotErrorIs(t, err, ErrConnectFailed)

	reason, ok := ReasonOf(fmt.Errorf("wrapped: %w", err))
	assert.True(t, ok)
	assert.Equal(t, AuthFailureInvalidTarget, reason)
}

func TestDisconnectReason_String(t *testing.T) {
	assert.Equal(t, "NotAcceptingConnections", NotAcceptingConnections.String())
	assert.Equal(t, "DisconnectReason(999)", DisconnectReason(999).String())

	r, err := ParseDisconnectReason("Banned")
	assert.NoError(t, err)
	assert.Equal(t, Banned, r)

	_, err = ParseDisconnectReason("Bogus")
	assert.Error(t, err)
}
