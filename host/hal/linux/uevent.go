package linux

import (
	"bytes"
	"strings"
)

// =============================================================================
// UEvent Types
// =============================================================================

// ueventAction represents a udev action.
type ueventAction uint8

const (
	ueventUnknown ueventAction = iota
	ueventAdd
	ueventRemove
	ueventChange
	ueventBind
	ueventUnbind
)

// uevent represents a parsed netlink uevent.
type uevent struct {
	action    ueventAction
	devpath   string // DEVPATH value
	subsystem string // SUBSYSTEM value
	devtype   string // DEVTYPE value

	// MMC-specific
	cardType string // MMC_TYPE
	cardName string // MMC_NAME
}

// card returns the card device name, the last element of the devpath
// (e.g. "mmc0:aaaa").
func (e *uevent) card() string {
	if i := strings.LastIndexByte(e.devpath, '/'); i >= 0 {
		return e.devpath[i+1:]
	}
	return e.devpath
}

// host returns the mmc host the card belongs to (e.g. "mmc0").
func (e *uevent) host() string {
	return hostOf(e.card())
}

// hostOf returns the host part of a card device name.
func hostOf(card string) string {
	if i := strings.IndexByte(card, ':'); i >= 0 {
		return card[:i]
	}
	return ""
}

// isCard reports whether the event describes an mmc card device.
func (e *uevent) isCard() bool {
	return e.subsystem == SubsystemMMC && e.host() != ""
}

// =============================================================================
// UEvent Parsing
// =============================================================================

// parseUEvent parses a netlink uevent message.
func parseUEvent(data []byte) uevent {
	evt := uevent{}

	// Split into null-terminated strings
	lines := bytes.Split(data, []byte{0})

	for _, line := range lines {
		if len(line) == 0 {
			continue
		}

		s := string(line)

		idx := strings.IndexByte(s, '=')
		if idx < 0 {
			// The header is action@devpath
			if at := strings.IndexByte(s, '@'); at > 0 {
				if a := parseAction(s[:at]); a != ueventUnknown {
					evt.action = a
					evt.devpath = s[at+1:]
				}
			}
			continue
		}

		key := s[:idx]
		value := s[idx+1:]

		switch key {
		case "ACTION":
			evt.action = parseAction(value)
		case "DEVPATH":
			evt.devpath = value
		case "SUBSYSTEM":
			evt.subsystem = value
		case "DEVTYPE":
			evt.devtype = value
		case "MMC_TYPE":
			evt.cardType = value
		case "MMC_NAME":
			evt.cardName = value
		}
	}

	return evt
}

// parseAction maps an action name to its value.
func parseAction(s string) ueventAction {
	switch s {
	case "add":
		return ueventAdd
	case "remove":
		return ueventRemove
	case "change":
		return ueventChange
	case "bind":
		return ueventBind
	case "unbind":
		return ueventUnbind
	default:
		return ueventUnknown
	}
}
