package linux

// =============================================================================
// System Paths
// =============================================================================

// SysfsMMCPath is the base path for mmc card devices in sysfs.
const SysfsMMCPath = "/sys/bus/mmc/devices"

// =============================================================================
// Netlink Constants
// =============================================================================

// UEventBufferSize is the buffer size for netlink messages.
const UEventBufferSize = 4096

// kernelGroup is the netlink multicast group of kernel uevents.
const kernelGroup = 1

// SubsystemMMC is the uevent subsystem of mmc cards.
const SubsystemMMC = "mmc"

// =============================================================================
// Card Types
// =============================================================================

// MMC_TYPE values reported by the kernel.
const (
	CardTypeSD      = "SD"
	CardTypeSDIO    = "SDIO"
	CardTypeSDCombo = "SDcombo"
	CardTypeMMC     = "MMC"
)
