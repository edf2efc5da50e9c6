package port

import (
	"fmt"
	"net"
)

// Scanner checks whether specific ports are free on the host machine.
//
// It asks the operating system's network stack directly (net.Listen)
// rather than parsing /proc/net/* or shelling out to `lsof`/`ss`, which
// may require elevated permissions and vary across distributions.
//
// The struct is stateless today; it exists as a receiver so options
// (bind address, probe timeout) can be added without breaking the API,
// and so the Auditor can take it as an injectable dependency in tests.
type Scanner struct{}

// NewScanner creates a new Scanner instance.
func NewScanner() *Scanner {
	return &Scanner{}
}

// IsAvailable reports whether a TCP port is free.
//
// The probe binds to all interfaces (":port" rather than
// "127.0.0.1:port") because the container engine publishes ports on
// 0.0.0.0; checking a narrower address would miss conflicts the engine
// will hit. A successful bind is immediately closed — the probe only
// tests availability, it never accepts connections.
func (s *Scanner) IsAvailable(port int) bool {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	defer func() { _ = listener.Close() }()
	return true
}
