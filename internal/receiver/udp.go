package receiver

import (
	"context"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"

	"github.com/corrlab/corrbuf/internal/corrpool"
	"github.com/corrlab/corrbuf/internal/errors"
	"github.com/corrlab/corrbuf/internal/logger"
)

// UDPOptions tunes a UDP socket.
type UDPOptions struct {
	MulticastGroup string // joined on the socket when set
	Interface      string // interface name for the join, empty lets the OS pick
	ReadBuffer     int    // SO_RCVBUF in bytes, 0 keeps the OS default
}

// UDPSource receives one record per datagram. A datagram must be exactly
// one pool buffer long: header followed by samples.
type UDPSource struct {
	addr    string
	conn    *net.UDPConn
	scratch []byte
	log     logger.Logger
}

// ListenUDP opens a socket on addr. bufferSize is the expected datagram
// length.
func ListenUDP(addr string, bufferSize int, opts UDPOptions) (*UDPSource, error) {
	udpAddr, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, udpError(err, addr, "resolve")
	}
	conn, err := net.ListenUDP("udp4", udpAddr)
	if err != nil {
		return nil, udpError(err, addr, "listen")
	}

	s := &UDPSource{
		addr: conn.LocalAddr().String(),
		conn: conn,
		// One extra byte lets Drop notice oversized datagrams too.
		scratch: make([]byte, bufferSize+1),
		log:     GetLogger().With(logger.String("listen", addr)),
	}

	if opts.ReadBuffer > 0 {
		if err := conn.SetReadBuffer(opts.ReadBuffer); err != nil {
			conn.Close()
			return nil, udpError(err, addr, "set_read_buffer")
		}
	}
	if opts.MulticastGroup != "" {
		if err := s.joinGroup(opts.MulticastGroup, opts.Interface); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *UDPSource) joinGroup(group, ifname string) error {
	ip := net.ParseIP(group)
	if ip == nil || !ip.IsMulticast() {
		return errors.Newf("invalid multicast group %q", group).
			Component("receiver").
			Category(errors.CategoryValidation).
			Context("listen", s.addr).
			Build()
	}

	var ifi *net.Interface
	if ifname != "" {
		var err error
		if ifi, err = net.InterfaceByName(ifname); err != nil {
			return udpError(err, s.addr, "lookup_interface")
		}
	}

	pc := ipv4.NewPacketConn(s.conn)
	if err := pc.JoinGroup(ifi, &net.UDPAddr{IP: ip}); err != nil {
		return udpError(err, s.addr, "join_group")
	}
	s.log.Info("joined multicast group", logger.String("group", group), logger.String("interface", ifname))
	return nil
}

// Addr is the local address the socket is bound to.
func (s *UDPSource) Addr() string { return s.addr }

// Name implements Source.
func (s *UDPSource) Name() string { return "udp/" + s.addr }

// Fill implements Source. The datagram lands directly in the pool buffer.
func (s *UDPSource) Fill(ctx context.Context, p Pool, id corrpool.BufferID) error {
	raw := p.Raw(id)
	n, truncated, err := s.read(ctx, raw)
	if err != nil {
		return err
	}
	if truncated || n != len(raw) {
		return fmt.Errorf("%w: datagram of %d bytes, buffer is %d", ErrSkipRecord, n, len(raw))
	}
	return nil
}

// Drop implements Source.
func (s *UDPSource) Drop(ctx context.Context) error {
	_, _, err := s.read(ctx, s.scratch)
	return err
}

// Close implements Source.
func (s *UDPSource) Close() error {
	return s.conn.Close()
}

// read receives one datagram into buf. Cancelling ctx unblocks the read by
// expiring the socket deadline.
func (s *UDPSource) read(ctx context.Context, buf []byte) (n int, truncated bool, err error) {
	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(aLongTimeAgo)
	})
	defer stop()

	n, _, flags, _, err := s.conn.ReadMsgUDP(buf, nil)
	if err != nil {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}
		if isTruncation(err) {
			return n, true, nil
		}
		return 0, false, err
	}
	return n, flags&msgTrunc != 0, nil
}

func udpError(err error, addr, operation string) error {
	return errors.New(err).
		Component("receiver").
		Category(errors.CategoryNetwork).
		Context("operation", operation).
		Context("listen", addr).
		Build()
}
