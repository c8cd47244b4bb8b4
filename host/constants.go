package host

// Presence is the card presence state owned by a host device.
type Presence int32

// Presence states.
const (
	Absent  Presence = iota // No card in the slot
	Present                 // A card is in the slot
)

// String returns a human-readable presence name.
func (p Presence) String() string {
	switch p {
	case Absent:
		return "absent"
	case Present:
		return "present"
	default:
		return "unknown"
	}
}

// Property names surfaced for external inspection.
const (
	PropertyCardPresent = "Card Present"
	PropertyPowerState  = "Power State"
	PropertyProvider    = "Provider"
)

// SD command opcodes carried by request envelopes.
const (
	CmdGoIdleState        = 0
	CmdAllSendCID         = 2
	CmdSendRelativeAddr   = 3
	CmdSelectCard         = 7
	CmdSendIfCond         = 8
	CmdSendCSD            = 9
	CmdStopTransmission   = 12
	CmdSendStatus         = 13
	CmdSetBlockLen        = 16
	CmdReadSingleBlock    = 17
	CmdReadMultipleBlock  = 18
	CmdWriteBlock         = 24
	CmdWriteMultipleBlock = 25
	CmdAppCmd             = 55
)

// DefaultBlockSize is the SD data block size in bytes.
const DefaultBlockSize = 512
