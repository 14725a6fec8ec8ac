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

package regs

// Registers is single-register access to an 8-bit register file.
type Registers interface {
	ReadRegister(reg uint8) (uint8, error)
	WriteRegister(reg, value uint8) error
}

// Framer is the part of twowire.Bus that register access is built on.
type Framer interface {
	WriteFrame(payload []byte, autoStop bool) error
	WaitTransferComplete() error
	ReadFrame(n int) ([]byte, error)
}

// Device reads and writes registers of the target of a bus, one register per
// transaction.
type Device struct {
	bus Framer
}

func New(bus Framer) *Device {
	return &Device{bus: bus}
}

// WriteRegister sends reg and value in one frame and returns once the stop
// condition has completed.
func (d *Device) WriteRegister(reg, value uint8) error {
	return d.bus.WriteFrame([]byte{reg, value}, true)
}

/*
ReadRegister sets the register pointer with a write frame that deliberately
has no stop, waits for that byte to go out and then reads one byte after a
repeated start. The read frame ends with its own stop.
*/
func (d *Device) ReadRegister(reg uint8) (uint8, error) {
	if err := d.bus.WriteFrame([]byte{reg}, false); err != nil {
		return 0, err
	}
	if err := d.bus.WaitTransferComplete(); err != nil {
		return 0, err
	}
	b, err := d.bus.ReadFrame(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}
