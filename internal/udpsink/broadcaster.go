// Package udpsink re-broadcasts encoded MAVLink frames onto a UDP
// destination: one Write per frame, no coalescing or retransmission.
package udpsink

import (
	"fmt"
	"net"
)

// udpConn is the subset of *net.UDPConn a Broadcaster needs, so tests can
// substitute a fake without opening a real socket.
type udpConn interface {
	Write([]byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)
type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

type Broadcaster struct {
	dest string
	conn udpConn
}

// NewBroadcaster dials dest over UDP; DialUDP selects a suitable local
// address automatically.
func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr, func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
		return net.DialUDP(network, laddr, raddr)
	})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{dest: dest, conn: conn}, nil
}

// Send writes one encoded frame. Empty frames are a no-op.
func (b *Broadcaster) Send(frame []byte) error {
	if len(frame) == 0 {
		return nil
	}
	_, err := b.conn.Write(frame)
	return err
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
