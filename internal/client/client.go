// Package client implements a one-shot-connection-per-request client for
// the key-value store's TCP wire protocol.
package client

import (
	"bufio"
	"fmt"
	"net"

	"kvs/internal/kverrors"
	"kvs/internal/wire"
)

// Client talks to a server at a fixed address, opening a fresh
// connection for every request.
type Client struct {
	addr string
}

// New returns a Client targeting addr. It does not dial until a request
// is made.
func New(addr string) *Client { return &Client{addr: addr} }

// Get requests the value for key, returning (value, true, nil) on a
// hit, ("", false, nil) on a miss.
func (c *Client) Get(key string) (string, bool, error) {
	reply, err := c.roundTrip(wire.Get(key))
	if err != nil {
		return "", false, err
	}
	if !reply.Ok {
		return "", false, kverrors.Server(reply.ErrText)
	}
	if reply.Value == nil {
		return "", false, nil
	}
	return *reply.Value, true, nil
}

// Set stores value under key.
func (c *Client) Set(key, value string) error {
	reply, err := c.roundTrip(wire.Set(key, value))
	if err != nil {
		return err
	}
	if !reply.Ok {
		return kverrors.Server(reply.ErrText)
	}
	return nil
}

// Remove deletes key. If the server reports that key was absent, this
// returns a kverrors KindKeyNotFound error (reconstructed from the
// server's stringified reply) rather than a generic KindServer one, so
// callers can branch on kverrors.KeyOf the same way they would against
// a local engine.
func (c *Client) Remove(key string) error {
	reply, err := c.roundTrip(wire.Rm(key))
	if err != nil {
		return err
	}
	if !reply.Ok {
		if kverrors.IsKeyNotFoundText(key, reply.ErrText) {
			return kverrors.KeyNotFound(key)
		}
		return kverrors.Server(reply.ErrText)
	}
	return nil
}

// Shutdown asks the server to stop. It returns once the server has
// acknowledged and stopped accepting new connections.
func (c *Client) Shutdown() error {
	reply, err := c.roundTrip(wire.Shutdown())
	if err != nil {
		return err
	}
	if !reply.Ok {
		return kverrors.Server(reply.ErrText)
	}
	return nil
}

// roundTrip dials a fresh connection, writes one request line, reads
// one reply line, and closes the connection.
func (c *Client) roundTrip(req wire.Request) (wire.Reply, error) {
	conn, err := net.Dial("tcp", c.addr)
	if err != nil {
		return wire.Reply{}, kverrors.IO(fmt.Errorf("client: dial %s: %w", c.addr, err))
	}
	defer conn.Close()

	if err := wire.WriteRequest(conn, req); err != nil {
		return wire.Reply{}, kverrors.IO(fmt.Errorf("client: write request: %w", err))
	}
	reply, err := wire.ReadReply(bufio.NewReader(conn))
	if err != nil {
		return wire.Reply{}, kverrors.IO(fmt.Errorf("client: read reply: %w", err))
	}
	return reply, nil
}
