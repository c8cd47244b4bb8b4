package host

import (
	"context"

	"github.com/ardnew/sdhost/pkg"
)

// TransferFunc executes the transfer of a prepared request on the
// controller.
type TransferFunc func(ctx context.Context, req *Request) error

// ProcessRequest runs req through p the way a host driver does:
// preprocess, then the transfer, then postprocess.
//
// The transfer is skipped when preprocess fails. Postprocess runs exactly
// once in every case so that anything preprocess attached is released. The
// first failure is returned as a *RequestError naming its stage. A nil
// transfer completes immediately with success.
func ProcessRequest(ctx context.Context, p RequestProcessor, req *Request, transfer TransferFunc) error {
	if req == nil {
		return &RequestError{Stage: pkg.StagePreprocess, Err: pkg.ErrInvalidRequest}
	}

	var first error
	fail := func(stage pkg.Stage, err error) {
		if err != nil && first == nil {
			first = &RequestError{Stage: stage, Err: err}
		}
	}

	if err := p.PreprocessRequest(ctx, req); err != nil {
		fail(pkg.StagePreprocess, err)
		req.Complete(err)
		pkg.LogDebug(pkg.ComponentRequest, "request aborted", "request", req, "error", err)
	} else {
		var err error
		if transfer != nil {
			err = transfer(ctx, req)
		}
		req.Complete(err)
		fail(pkg.StageTransfer, err)
	}

	fail(pkg.StagePostprocess, p.PostprocessRequest(ctx, req))
	return first
}
