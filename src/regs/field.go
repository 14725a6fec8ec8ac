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

import "fmt"

/*
Field is a run of bits inside one register. Several unrelated fields often
share a byte, so a field is only ever changed with a read-modify-write that
leaves the bits outside Mask alone.

Read-modify-write is not atomic on the bus. It is only correct while this is
the single master talking to the device.
*/
type Field struct {
	Reg   uint8
	Mask  uint8 // in register position
	Shift uint8
}

// Get extracts the field from a register value.
func (f Field) Get(v uint8) uint8 {
	return (v & f.Mask) >> f.Shift
}

// Set returns v with the field replaced by x. Bits of x that do not fit are dropped.
func (f Field) Set(v, x uint8) uint8 {
	return v&^f.Mask | (x<<f.Shift)&f.Mask
}

func (f Field) String() string {
	return fmt.Sprintf("%02x[%08b]", f.Reg, f.Mask)
}

// Read returns the current value of f.
func Read(r Registers, f Field) (uint8, error) {
	v, err := r.ReadRegister(f.Reg)
	if err != nil {
		return 0, err
	}
	return f.Get(v), nil
}

// Update replaces f with x, preserving every other bit of the register.
func Update(r Registers, f Field, x uint8) error {
	v, err := r.ReadRegister(f.Reg)
	if err != nil {
		return err
	}
	return r.WriteRegister(f.Reg, f.Set(v, x))
}

// UpdateAll applies several fields of the same register with one read and one
// write. All fields must name the same register and must not overlap.
func UpdateAll(r Registers, reg uint8, changes map[Field]uint8) error {
	for f := range changes {
		if f.Reg != reg {
			return fmt.Errorf("regs: field %v is not in register %02x", f, reg)
		}
	}
	v, err := r.ReadRegister(reg)
	if err != nil {
		return err
	}
	for f, x := range changes {
		v = f.Set(v, x)
	}
	return r.WriteRegister(reg, v)
}
