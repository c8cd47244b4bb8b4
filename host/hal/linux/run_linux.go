//go:build linux

package linux

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/ardnew/sdhost/pkg"
)

// pollTimeout is the poll timeout in milliseconds between ctx checks.
const pollTimeout = 100

// monitor is a netlink socket bound to kernel uevents.
type monitor struct {
	fd  int
	buf [UEventBufferSize]byte
}

// newMonitor opens the uevent socket.
func newMonitor() (*monitor, error) {
	fd, err := unix.Socket(
		unix.AF_NETLINK,
		unix.SOCK_DGRAM|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK,
		unix.NETLINK_KOBJECT_UEVENT,
	)
	if err != nil {
		return nil, fmt.Errorf("netlink socket: %w", err)
	}

	addr := unix.SockaddrNetlink{
		Family: unix.AF_NETLINK,
		Groups: kernelGroup,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("netlink bind: %w", err)
	}
	return &monitor{fd: fd}, nil
}

func (m *monitor) close() error {
	return unix.Close(m.fd)
}

// read waits up to pollTimeout for one uevent. It returns nil data when
// nothing arrived.
func (m *monitor) read() ([]byte, error) {
	fds := []unix.PollFd{{Fd: int32(m.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, pollTimeout)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}

	n, _, err = unix.Recvfrom(m.fd, m.buf[:], 0)
	if err != nil {
		if err == unix.EAGAIN || err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	return m.buf[:n], nil
}

// Run scans sysfs for present cards and then reports uevents until ctx is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	m, err := newMonitor()
	if err != nil {
		return err
	}
	defer m.close()

	if err := c.scan(ctx); err != nil {
		return fmt.Errorf("scan %s: %w", c.sysfsRoot, err)
	}

	pkg.LogInfo(pkg.ComponentHAL, "uevent controller started", "controller", c.name, "host", c.host)

	for {
		select {
		case <-ctx.Done():
			pkg.LogInfo(pkg.ComponentHAL, "uevent controller stopped", "controller", c.name)
			return nil
		default:
		}

		data, err := m.read()
		if err != nil {
			return fmt.Errorf("netlink read: %w", err)
		}
		if data == nil {
			continue
		}
		evt := parseUEvent(data)
		c.handle(ctx, &evt)
	}
}
