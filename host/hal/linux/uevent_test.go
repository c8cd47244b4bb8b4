package linux

import (
	"testing"
)

// =============================================================================
// uevent Parsing Tests
// =============================================================================

func TestParseUEvent_Add(t *testing.T) {
	// Uevent emitted by the mmc core after a card is initialized
	data := []byte(
		"add@/devices/pci0000:00/0000:00:1c.0/0000:02:00.0/rtsx_pci_sdmmc.0/mmc_host/mmc0/mmc0:aaaa\x00" +
			"ACTION=add\x00" +
			"DEVPATH=/devices/pci0000:00/0000:00:1c.0/0000:02:00.0/rtsx_pci_sdmmc.0/mmc_host/mmc0/mmc0:aaaa\x00" +
			"SUBSYSTEM=mmc\x00" +
			"MMC_TYPE=SD\x00" +
			"MMC_NAME=SL16G\x00" +
			"MODALIAS=mmc:block\x00" +
			"SEQNUM=4242\x00",
	)

	evt := parseUEvent(data)

	if evt.action != ueventAdd {
		t.Errorf("action = %d, want ueventAdd (%d)", evt.action, ueventAdd)
	}
	if evt.subsystem != SubsystemMMC {
		t.Errorf("subsystem = %q, want %q", evt.subsystem, SubsystemMMC)
	}
	if evt.cardType != CardTypeSD {
		t.Errorf("cardType = %q, want %q", evt.cardType, CardTypeSD)
	}
	if evt.cardName != "SL16G" {
		t.Errorf("cardName = %q, want %q", evt.cardName, "SL16G")
	}
	if got := evt.card(); got != "mmc0:aaaa" {
		t.Errorf("card() = %q, want %q", got, "mmc0:aaaa")
	}
	if got := evt.host(); got != "mmc0" {
		t.Errorf("host() = %q, want %q", got, "mmc0")
	}
	if !evt.isCard() {
		t.Error("isCard() = false, want true")
	}
}

func TestParseUEvent_Remove(t *testing.T) {
	data := []byte(
		"remove@/devices/platform/rtsx_usb_sdmmc.1/mmc_host/mmc1/mmc1:0001\x00" +
			"ACTION=remove\x00" +
			"DEVPATH=/devices/platform/rtsx_usb_sdmmc.1/mmc_host/mmc1/mmc1:0001\x00" +
			"SUBSYSTEM=mmc\x00",
	)

	evt := parseUEvent(data)

	if evt.action != ueventRemove {
		t.Errorf("action = %d, want ueventRemove (%d)", evt.action, ueventRemove)
	}
	if got := evt.host(); got != "mmc1" {
		t.Errorf("host() = %q, want %q", got, "mmc1")
	}
}

func TestParseUEvent_HostIsNotCard(t *testing.T) {
	// The mmc_host class device itself has no ':' in its name
	data := []byte(
		"ACTION=add\x00" +
			"DEVPATH=/devices/pci0000:00/0000:02:00.0/rtsx_pci_sdmmc.0/mmc_host/mmc0\x00" +
			"SUBSYSTEM=mmc_host\x00",
	)

	evt := parseUEvent(data)

	if evt.isCard() {
		t.Error("isCard() = true for an mmc_host event")
	}
}

func TestParseUEvent_OtherSubsystem(t *testing.T) {
	data := []byte(
		"ACTION=add\x00" +
			"DEVPATH=/devices/pci0000:00/0000:00:14.0/usb1/1-1:1.0\x00" +
			"SUBSYSTEM=usb\x00" +
			"DEVTYPE=usb_interface\x00",
	)

	evt := parseUEvent(data)

	if evt.devtype != "usb_interface" {
		t.Errorf("devtype = %q, want %q", evt.devtype, "usb_interface")
	}
	if evt.isCard() {
		t.Error("isCard() = true for a usb event")
	}
}

func TestParseUEvent_Actions(t *testing.T) {
	tests := []struct {
		name string
		want ueventAction
	}{
		{"add", ueventAdd},
		{"remove", ueventRemove},
		{"change", ueventChange},
		{"bind", ueventBind},
		{"unbind", ueventUnbind},
		{"online", ueventUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			evt := parseUEvent([]byte("ACTION=" + tt.name + "\x00"))
			if evt.action != tt.want {
				t.Errorf("action = %d, want %d", evt.action, tt.want)
			}
		})
	}
}

func TestParseUEvent_EmptyData(t *testing.T) {
	evt := parseUEvent([]byte{})

	if evt.action != ueventUnknown {
		t.Errorf("action = %d, want ueventUnknown (%d)", evt.action, ueventUnknown)
	}
	if evt.devpath != "" {
		t.Errorf("devpath should be empty")
	}
}

func TestParseUEvent_OnlyHeader(t *testing.T) {
	data := []byte("add@/devices/mmc_host/mmc0/mmc0:1234\x00")

	evt := parseUEvent(data)

	if evt.action != ueventAdd {
		t.Errorf("action = %d, want ueventAdd (%d)", evt.action, ueventAdd)
	}
	if evt.devpath != "/devices/mmc_host/mmc0/mmc0:1234" {
		t.Errorf("devpath = %q, want %q", evt.devpath, "/devices/mmc_host/mmc0/mmc0:1234")
	}
}

func TestParseUEvent_UnknownHeader(t *testing.T) {
	evt := parseUEvent([]byte("libudev\x00"))

	if evt.action != ueventUnknown {
		t.Errorf("action = %d, want ueventUnknown (%d)", evt.action, ueventUnknown)
	}
}

// =============================================================================
// ueventAction Tests
// =============================================================================

func TestUeventAction_Values(t *testing.T) {
	if ueventUnknown != 0 {
		t.Errorf("ueventUnknown = %d, want 0", ueventUnknown)
	}
	if ueventAdd != 1 {
		t.Errorf("ueventAdd = %d, want 1", ueventAdd)
	}
	if ueventRemove != 2 {
		t.Errorf("ueventRemove = %d, want 2", ueventRemove)
	}
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkParseUEvent(b *testing.B) {
	data := []byte(
		"add@/devices/pci0000:00/0000:02:00.0/rtsx_pci_sdmmc.0/mmc_host/mmc0/mmc0:aaaa\x00" +
			"ACTION=add\x00" +
			"DEVPATH=/devices/pci0000:00/0000:02:00.0/rtsx_pci_sdmmc.0/mmc_host/mmc0/mmc0:aaaa\x00" +
			"SUBSYSTEM=mmc\x00" +
			"MMC_TYPE=SD\x00" +
			"MMC_NAME=SL16G\x00" +
			"SEQNUM=12345\x00",
	)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = parseUEvent(data)
	}
}
