/*
 * Copyright 2025 Ted Dunning
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package twowire

import (
	"errors"
	"fmt"
	"time"
)

// MaxFrame is the largest byte count a single frame can carry. The controller
// keeps the count in an 8-bit field.
const MaxFrame = 255

var (
	ErrTimeout     = errors.New("twowire: timeout")
	ErrFrameLength = errors.New("twowire: frame length out of range")
	ErrAddress     = errors.New("twowire: not a 7-bit address")
)

/*
Bus performs framed transactions with one target over a Peripheral.

Every wait is a poll on Peripheral.Status. By default the polls never give up:
an absent device or a stuck bus hangs the caller, which is what the minimal
protocol does. SetTimeout installs a bound on each individual wait.

A Bus is not safe for concurrent use. It assumes it is the only master on the
bus and that nothing else drives the peripheral.
*/
type Bus struct {
	p      Peripheral
	target uint8
	dl     deadliner
}

// New returns a Bus that addresses target (a 7-bit address) through p.
func New(p Peripheral, target uint8) *Bus {
	return &Bus{p: p, target: target}
}

// Target returns the 7-bit address used by WriteFrame and ReadFrame.
func (b *Bus) Target() uint8 { return b.target }

// SetTimeout bounds every flag wait. Zero or negative restores unbounded polling.
func (b *Bus) SetTimeout(timeout time.Duration) {
	b.dl.setTimeout(timeout)
}

// WriteFrame sends payload to the target. With autoStop the controller ends the
// frame with a stop condition and WriteFrame returns once the stop has been
// seen. Without it, WriteFrame returns as soon as the last byte is loaded and
// the caller must WaitTransferComplete before restarting or stopping.
func (b *Bus) WriteFrame(payload []byte, autoStop bool) error {
	return b.writeFrame(b.target, payload, autoStop)
}

// ReadFrame reads n bytes from the target and ends the frame with a stop.
func (b *Bus) ReadFrame(n int) ([]byte, error) {
	if n <= 0 || n > MaxFrame {
		return nil, fmt.Errorf("%w: %d", ErrFrameLength, n)
	}
	buf := make([]byte, n)
	if err := b.readFrame(b.target, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WaitTransferComplete blocks until the controller reports that the last byte
// of a frame without auto-stop has gone out.
func (b *Bus) WaitTransferComplete() error {
	return b.waitFor(TransferComplete)
}

// WaitStopComplete blocks until a stop condition has been seen and then clears
// the flag so the next transaction starts from a clean status.
func (b *Bus) WaitStopComplete() error {
	if err := b.waitFor(StopDetected); err != nil {
		return err
	}
	b.p.Clear(StopDetected)
	return nil
}

func (b *Bus) writeFrame(target uint8, payload []byte, autoStop bool) error {
	if len(payload) == 0 || len(payload) > MaxFrame {
		return fmt.Errorf("%w: %d", ErrFrameLength, len(payload))
	}
	b.p.Setup(Frame{Target: target, Dir: Write, Count: len(payload), AutoStop: autoStop})
	b.p.Start()
	for _, v := range payload {
		if err := b.waitFor(TxEmpty); err != nil {
			return b.abort(err)
		}
		b.p.Transmit(v)
	}
	if autoStop {
		if err := b.WaitStopComplete(); err != nil {
			return b.abort(err)
		}
	}
	return nil
}

func (b *Bus) readFrame(target uint8, buf []byte) error {
	if len(buf) == 0 || len(buf) > MaxFrame {
		return fmt.Errorf("%w: %d", ErrFrameLength, len(buf))
	}
	b.p.Setup(Frame{Target: target, Dir: Read, Count: len(buf)})
	b.p.Start()
	for i := range buf {
		if err := b.waitFor(RxNotEmpty); err != nil {
			return b.abort(err)
		}
		buf[i] = b.p.Receive()
	}
	b.p.Stop()
	if err := b.WaitStopComplete(); err != nil {
		return b.abort(err)
	}
	return nil
}

// abort ends a frame that timed out so the bus is released. The stop flag is
// cleared if it shows up within one more wait; err is returned either way.
func (b *Bus) abort(err error) error {
	b.p.Stop()
	if b.waitFor(StopDetected) == nil {
		b.p.Clear(StopDetected)
	}
	return err
}

func (b *Bus) waitFor(flag Status) error {
	deadline := b.dl.newDeadline()
	for b.p.Status()&flag == 0 {
		if deadline.expired() {
			return fmt.Errorf("%w waiting for %v", ErrTimeout, flag)
		}
	}
	return nil
}

type deadline struct {
	t time.Time
}

func (dl deadline) expired() bool {
	if dl.t.IsZero() {
		return false
	}
	return time.Since(dl.t) > 0
}

type deadliner struct {
	timeout time.Duration
}

func (d deadliner) newDeadline() deadline {
	var t time.Time
	if d.timeout > 0 {
		t = time.Now().Add(d.timeout)
	}
	return deadline{t: t}
}

func (d *deadliner) setTimeout(timeout time.Duration) {
	if timeout <= 0 {
		d.timeout = 0
		return // no timeout
	}
	d.timeout = timeout
}
