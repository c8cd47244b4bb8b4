package power

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPosture_String(t *testing.T) {
	tests := []struct {
		posture Posture
		want    string
	}{
		{Off, "off"},
		{On, "on"},
		{Posture(7), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.posture.String(); got != tt.want {
				t.Errorf("Posture.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTable(t *testing.T) {
	want := [NumStates]State{
		{Version: StateVersion},
		{
			Version:          StateVersion,
			Capabilities:     CapPowerOn | CapDeviceUsable | CapInitialDeviceState,
			OutputCharacter:  CapPowerOn,
			InputRequirement: CapPowerOn,
		},
	}
	if diff := cmp.Diff(want, Table()); diff != "" {
		t.Errorf("Table() mismatch (-want +got):\n%s", diff)
	}

	states := Table()
	if states[OrdinalOff].Usable() {
		t.Error("off state should not be usable")
	}
	if !states[OrdinalOn].Usable() {
		t.Error("on state should be usable")
	}
}

func TestTable_Immutable(t *testing.T) {
	states := Table()
	states[OrdinalOn].Capabilities = 0

	if !Table()[OrdinalOn].Usable() {
		t.Error("modifying a returned table changed the process-wide table")
	}
}

func TestPostureOf(t *testing.T) {
	tests := []struct {
		ordinal int
		want    Posture
		ok      bool
	}{
		{OrdinalOff, Off, true},
		{OrdinalOn, On, true},
		{-1, Off, false},
		{2, Off, false},
	}

	for _, tt := range tests {
		got, ok := PostureOf(tt.ordinal)
		if got != tt.want || ok != tt.ok {
			t.Errorf("PostureOf(%d) = (%v, %v), want (%v, %v)", tt.ordinal, got, ok, tt.want, tt.ok)
		}
	}
}

func TestInitialOrdinal(t *testing.T) {
	states := Table()
	if got := InitialOrdinal(states[:]); got != OrdinalOn {
		t.Errorf("InitialOrdinal() = %d, want %d", got, OrdinalOn)
	}
	if got := InitialOrdinal([]State{{Version: StateVersion}}); got != -1 {
		t.Errorf("InitialOrdinal() = %d, want -1", got)
	}
}

func TestCapability_Has(t *testing.T) {
	c := CapPowerOn | CapDeviceUsable
	if !c.Has(CapPowerOn) {
		t.Error("Has(CapPowerOn) = false")
	}
	if !c.Has(CapPowerOn | CapDeviceUsable) {
		t.Error("Has(CapPowerOn|CapDeviceUsable) = false")
	}
	if c.Has(CapInitialDeviceState) {
		t.Error("Has(CapInitialDeviceState) = true")
	}
}
