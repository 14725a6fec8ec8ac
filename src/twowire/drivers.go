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
	"fmt"

	"tinygo.org/x/drivers"
)

// a Bus can stand in for machine.I2C wherever the tinygo drivers want a bus
var _ drivers.I2C = (*Bus)(nil)

// Tx writes w and then, after a repeated start, reads len(r) bytes from addr.
// Either slice may be empty.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7f {
		return fmt.Errorf("%w: %#x", ErrAddress, addr)
	}
	target := uint8(addr)
	switch {
	case len(w) > 0 && len(r) > 0:
		if err := b.writeFrame(target, w, false); err != nil {
			return err
		}
		if err := b.WaitTransferComplete(); err != nil {
			return err
		}
		return b.readFrame(target, r)
	case len(w) > 0:
		return b.writeFrame(target, w, true)
	case len(r) > 0:
		return b.readFrame(target, r)
	}
	return nil
}

// ReadRegister reads len(buf) consecutive registers of addr starting at r.
func (b *Bus) ReadRegister(addr uint8, r uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{r}, buf)
}

// WriteRegister writes buf to consecutive registers of addr starting at r.
func (b *Bus) WriteRegister(addr uint8, r uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, r)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}
