//go:build !linux

package linux

import (
	"context"

	"github.com/ardnew/sdhost/pkg"
)

// Run is only supported on Linux.
func (c *Controller) Run(ctx context.Context) error {
	return pkg.ErrNotSupported
}
