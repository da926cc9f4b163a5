package provision

import (
	"net"
	"sync"
	"time"

	"tinygo.org/x/drivers/netlink"
)

// SimLink is a Linker for the host simulator and tests. Networks maps SSID
// to passphrase; Delay models association time.
type SimLink struct {
	mu sync.Mutex

	MAC      net.HardwareAddr
	Networks map[string]string
	Delay    time.Duration

	joined   string
	Attempts int
}

func (s *SimLink) NetConnect(p *netlink.ConnectParams) error {
	s.mu.Lock()
	s.Attempts++
	delay := s.Delay
	pass, known := s.Networks[p.Ssid]
	s.mu.Unlock()

	if delay > 0 {
		if p.ConnectTimeout > 0 && delay > p.ConnectTimeout {
			time.Sleep(p.ConnectTimeout)
			return netlink.ErrConnectTimeout
		}
		time.Sleep(delay)
	}
	if !known || pass != p.Passphrase {
		return netlink.ErrConnectFailed
	}
	s.mu.Lock()
	s.joined = p.Ssid
	s.mu.Unlock()
	return nil
}

func (s *SimLink) NetDisconnect() {
	s.mu.Lock()
	s.joined = ""
	s.mu.Unlock()
}

func (s *SimLink) GetHardwareAddr() (net.HardwareAddr, error) {
	return s.MAC, nil
}

// Joined returns the SSID currently associated, if any.
func (s *SimLink) Joined() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.joined
}
