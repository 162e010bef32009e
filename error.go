// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package fiber

import (
	"errors"
	"fmt"
)

var (
	// ErrLoopClosed is returned when a callback or timer is scheduled on
	// a closed [Loop].
	ErrLoopClosed = errors.New("fiber: loop closed")

	// ErrSchedulerShutdown is delivered to a [Handle] when its fiber was
	// submitted to, or still suspended on, a [Manager] whose loop tore down.
	ErrSchedulerShutdown = errors.New("fiber: scheduler shut down")

	// ErrPromiseAbandoned is delivered to the awaiting fiber when a
	// [Promise] became unreachable without ever being fulfilled.
	// No resumption would ever occur, so the wait fails instead of hanging.
	ErrPromiseAbandoned = errors.New("fiber: promise abandoned before fulfillment")
)

// PanicError carries the recovered payload of a bridge callback that
// panicked before fulfilling its promise. It is delivered to the awaiting
// fiber as the fiber's result failure.
type PanicError struct {
	Value any
}

func (e PanicError) Error() string {
	return fmt.Sprintf("fiber: callback panicked: %v", e.Value)
}
