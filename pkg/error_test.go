package pkg

import (
	"errors"
	"fmt"
	"testing"
)

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage Stage
		want  string
	}{
		{StagePreprocess, "preprocess"},
		{StageTransfer, "transfer"},
		{StagePostprocess, "postprocess"},
		{Stage(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.stage.String(); got != tt.want {
				t.Errorf("Stage.String() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSentinelErrors(t *testing.T) {
	// Verify all sentinel errors are distinct
	errs := []error{
		ErrInitialization,
		ErrPowerRegistration,
		ErrResourceUnavailable,
		ErrGatedContext,
		ErrNotStarted,
		ErrAlreadyAttached,
		ErrNotAttached,
		ErrInvalidPowerState,
		ErrNotRegistered,
		ErrAlreadyRegistered,
		ErrAckTimeout,
		ErrInvalidRequest,
		ErrInvalidConfig,
		ErrCancelled,
		ErrNotSupported,
	}

	for i, err1 := range errs {
		if err1 == nil {
			t.Errorf("error %d is nil", i)
			continue
		}
		for j, err2 := range errs {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("error %d and %d are equal", i, j)
			}
		}
	}
}

func TestSentinelErrors_Wrapped(t *testing.T) {
	err := fmt.Errorf("%w: dma window exhausted", ErrResourceUnavailable)
	if !errors.Is(err, ErrResourceUnavailable) {
		t.Errorf("wrapped error %v does not match ErrResourceUnavailable", err)
	}
	if errors.Is(err, ErrInitialization) {
		t.Errorf("wrapped error %v unexpectedly matches ErrInitialization", err)
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err     error
		wantMsg string
	}{
		{ErrInitialization, "initialization failed"},
		{ErrPowerRegistration, "power registration failed"},
		{ErrResourceUnavailable, "resource unavailable"},
		{ErrGatedContext, "blocking operation in gated context"},
	}

	for _, tt := range tests {
		t.Run(tt.wantMsg, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMsg {
				t.Errorf("error.Error() = %v, want %v", got, tt.wantMsg)
			}
		})
	}
}
