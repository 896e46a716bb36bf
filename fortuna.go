// Package fortuna wires the entropy accumulator and the ingestion
// supervisor together into the programmatic surface described by the
// service's design notes: New, SetFilePeer, SetTCPPeer, SetSendByte and
// RandomData. cmd/fortunad is a thin HTTP shell around exactly this type.
package fortuna

import (
	"context"
	"time"

	"fortunad/internal/accumulator"
	"fortunad/internal/ingest"
)

// Service is a running Fortuna generator fed by zero or more entropy
// sources. The zero value is not usable; construct one with New.
type Service struct {
	acc *accumulator.Accumulator
	sup *ingest.Supervisor
}

// New starts a Service with an empty accumulator and no configured entropy
// sources. Sources are wired in afterwards with SetFilePeer, SetTCPPeer and
// SetSendByte; the returned Service's background goroutines run until ctx
// is canceled or Close is called.
func New(ctx context.Context) *Service {
	acc := accumulator.New()
	return &Service{
		acc: acc,
		sup: ingest.New(ctx, acc),
	}
}

// SetFilePeer configures the local file entropy source. An empty path
// disables it.
func (s *Service) SetFilePeer(path string) {
	s.sup.SetFilePeer(path)
}

// SetTCPPeer configures the remote TCP/TLS entropy source. An empty
// address disables it.
func (s *Service) SetTCPPeer(address string, tlsEnabled bool, port uint16) {
	s.sup.SetTCPPeer(address, tlsEnabled, port)
}

// SetSendByte enables or reconfigures the heartbeat written to the TCP
// peer while it is connected.
func (s *Service) SetSendByte(b byte, interval time.Duration) {
	s.sup.SetSendByte(b, interval)
}

// RandomData returns n bytes of pseudo-random output, reseeding the
// generator first if enough entropy has accumulated. It returns nil if the
// generator has never been seeded or if n is out of range; see
// accumulator.Accumulator.RandomData.
func (s *Service) RandomData(n int) []byte {
	return s.acc.RandomData(n)
}

// Status reports the accumulator's and the TCP source's state, for the
// operator surface's /status endpoint.
type Status struct {
	accumulator.Status
	TCPState string `json:"tcp_state"`
}

// Status returns a snapshot of the service's current state.
func (s *Service) Status() Status {
	return Status{
		Status:   s.acc.Status(),
		TCPState: s.sup.TCPState().String(),
	}
}

// Close stops all background goroutines and closes any open sockets.
func (s *Service) Close() {
	s.sup.Close()
}
