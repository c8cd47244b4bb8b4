package host

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/ardnew/sdhost/pkg"
)

// Direction is the data direction of a request.
type Direction uint8

// Data directions.
const (
	DirNone  Direction = iota // No data phase
	DirRead                   // Card to host
	DirWrite                  // Host to card
)

// String returns a human-readable direction name.
func (d Direction) String() string {
	switch d {
	case DirRead:
		return "read"
	case DirWrite:
		return "write"
	default:
		return "none"
	}
}

// ResponseType is the expected response format of a command.
type ResponseType uint8

// Response types.
const (
	RespNone ResponseType = iota
	RespR1
	RespR1b
	RespR2
	RespR3
	RespR6
	RespR7
)

// Command holds the parameters of an SD command.
type Command struct {
	Opcode   uint8
	Argument uint32
	Response ResponseType
}

// Data describes the data phase of a request. Buffers belong to the caller.
type Data struct {
	Direction Direction
	BlockSize int
	Blocks    int
	Buffers   [][]byte
}

// Len returns the total length of the buffers.
func (d *Data) Len() int {
	n := 0
	for _, b := range d.Buffers {
		n += len(b)
	}
	return n
}

// Validate checks that the buffers hold exactly Blocks blocks.
func (d *Data) Validate() error {
	if d.Direction != DirRead && d.Direction != DirWrite {
		return fmt.Errorf("%w: data direction %s", pkg.ErrInvalidRequest, d.Direction)
	}
	if d.BlockSize <= 0 || d.Blocks <= 0 {
		return fmt.Errorf("%w: %d blocks of %d bytes", pkg.ErrInvalidRequest, d.Blocks, d.BlockSize)
	}
	if n := d.Len(); n != d.BlockSize*d.Blocks {
		return fmt.Errorf("%w: buffers hold %d bytes, want %d", pkg.ErrInvalidRequest, n, d.BlockSize*d.Blocks)
	}
	return nil
}

// Resource is something preprocess attaches to a request for postprocess to
// release.
type Resource interface {
	Release() error
}

// ReleaseFunc adapts a function to a Resource.
type ReleaseFunc func() error

// Release calls f.
func (f ReleaseFunc) Release() error {
	return f()
}

// Request is the envelope of one in-flight SD command.
//
// The host driver creates it, preprocess attaches resources, postprocess
// releases them and the driver discards it. A host device never keeps a
// request beyond a hook call.
type Request struct {
	ID      uuid.UUID
	Command Command
	Data    *Data // nil for commands without a data phase

	resources []Resource
	completed bool
	err       error
}

// NewRequest creates a request envelope with a fresh ID.
func NewRequest(cmd Command, data *Data) *Request {
	return &Request{
		ID:      uuid.New(),
		Command: cmd,
		Data:    data,
	}
}

// Attach adds res to the request's resource slot.
func (r *Request) Attach(res Resource) {
	r.resources = append(r.resources, res)
}

// Resources returns a copy of the attached resources in attach order.
func (r *Request) Resources() []Resource {
	return append([]Resource(nil), r.resources...)
}

// Attached returns the number of attached resources.
func (r *Request) Attached() int {
	return len(r.resources)
}

// ReleaseAll releases every attached resource in reverse attach order and
// empties the slot. All resources are released even if some fail; the
// first failure is returned. Calling ReleaseAll again is a no-op.
func (r *Request) ReleaseAll() error {
	var first error
	for i := len(r.resources) - 1; i >= 0; i-- {
		if err := r.resources[i].Release(); err != nil && first == nil {
			first = err
		}
		r.resources[i] = nil
	}
	r.resources = r.resources[:0]
	return first
}

// Complete records the outcome of the transfer.
func (r *Request) Complete(err error) {
	r.completed = true
	r.err = err
}

// Completed reports whether Complete was called.
func (r *Request) Completed() bool {
	return r.completed
}

// Err returns the recorded transfer outcome.
func (r *Request) Err() error {
	return r.err
}

// Succeeded reports whether the transfer completed without error.
func (r *Request) Succeeded() bool {
	return r.completed && r.err == nil
}

// String returns a short description for logs.
func (r *Request) String() string {
	if r.Data == nil {
		return fmt.Sprintf("CMD%d arg=%#x id=%s", r.Command.Opcode, r.Command.Argument, r.ID)
	}
	return fmt.Sprintf("CMD%d arg=%#x %s %dx%d id=%s",
		r.Command.Opcode, r.Command.Argument, r.Data.Direction, r.Data.Blocks, r.Data.BlockSize, r.ID)
}

// RequestError reports the stage at which a request failed.
type RequestError struct {
	Stage pkg.Stage
	Err   error
}

func (e *RequestError) Error() string {
	return e.Stage.String() + ": " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *RequestError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage recorded in err, if it is a *RequestError.
func StageOf(err error) (pkg.Stage, bool) {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Stage, true
	}
	return 0, false
}
