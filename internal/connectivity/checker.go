package connectivity

import (
	"context"
	"net"
	"time"
)

// Checker reports whether the host currently has a usable network.
type Checker interface {
	Connected(ctx context.Context) bool
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context) bool

func (f CheckerFunc) Connected(ctx context.Context) bool { return f(ctx) }

// InterfaceChecker is connected when some interface is up, is not loopback, and
// carries a global unicast address.
type InterfaceChecker struct {
	// Interfaces lists the host interfaces; nil means net.Interfaces.
	Interfaces func() ([]net.Interface, error)
}

func (c InterfaceChecker) Connected(ctx context.Context) bool {
	list := c.Interfaces
	if list == nil {
		list = net.Interfaces
	}

	ifaces, err := list()
	if err != nil {
		return false
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			ipnet, ok := addr.(*net.IPNet)
			if ok && ipnet.IP.IsGlobalUnicast() {
				return true
			}
		}
	}
	return false
}

// ProbeChecker is connected when a TCP dial to Addr succeeds within Timeout.
type ProbeChecker struct {
	Addr    string
	Timeout time.Duration
}

func (c ProbeChecker) Connected(ctx context.Context) bool {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	dialer := net.Dialer{Timeout: timeout}

	conn, err := dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// AllOf is connected only when every checker is, evaluated in order.
func AllOf(checkers ...Checker) Checker {
	return CheckerFunc(func(ctx context.Context) bool {
		for _, c := range checkers {
			if !c.Connected(ctx) {
				return false
			}
		}
		return true
	})
}
