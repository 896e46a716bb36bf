package ingest

import (
	"context"
	"time"
)

// Supervisor owns both entropy sources described in §4.4 and exposes the
// subset of the programmatic surface (§6) that deals with ingestion
// configuration: SetFilePeer, SetTCPPeer, SetSendByte.
type Supervisor struct {
	file *fileSource
	tcp  *tcpSource
}

// New returns a Supervisor depositing into sink. The returned Supervisor's
// goroutines run until ctx is canceled or Close is called.
func New(ctx context.Context, sink Sink) *Supervisor {
	return &Supervisor{
		file: newFileSource(sink),
		tcp:  newTCPSource(ctx, sink),
	}
}

// SetFilePeer opens path as the local file source. See fileSource.Configure.
func (s *Supervisor) SetFilePeer(path string) {
	s.file.Configure(path)
}

// SetTCPPeer installs the remote TCP/TLS peer. See tcpSource.Configure.
func (s *Supervisor) SetTCPPeer(address string, tlsEnabled bool, port uint16) {
	s.tcp.Configure(address, tlsEnabled, port)
}

// SetSendByte enables or resets the heartbeat written to the TCP peer.
func (s *Supervisor) SetSendByte(b byte, interval time.Duration) {
	s.tcp.SetSendByte(b, interval)
}

// TCPState reports the current TCP connection state, for the operator
// surface's /status endpoint.
func (s *Supervisor) TCPState() ConnState {
	return s.tcp.State()
}

// Close stops all timers and closes all sockets owned by the supervisor.
func (s *Supervisor) Close() {
	s.file.Close()
	s.tcp.Close()
}
