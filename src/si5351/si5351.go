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

/*
Package si5351 loads divider values into an Si5351 clock generator.

Output frequency is

	f_out = f_xtal * (a + b/c)_pll / ((a + b/c)_ms * R)

Each of the two PLLs and three MultiSynth dividers is an eight byte register
block holding the packed parameters from package synth. Byte 2 of a block is
shared: P1[17:16] sits in bits 1:0 next to the divide-by-4 bits and, on the
MultiSynth blocks, the R post divider. Those shared bits are always changed
with read-modify-write.
*/
package si5351

import (
	"errors"
	"fmt"
	"time"

	"clockgen/src/regs"
	"clockgen/src/synth"
)

// Divider is the base register of a divider block.
type Divider uint8

const (
	PLLA        Divider = 0x1A
	PLLB        Divider = 0x22
	MultiSynth0 Divider = 0x2A
	MultiSynth1 Divider = 0x32
	MultiSynth2 Divider = 0x3A
)

const (
	// Address is the bus address with the ADDR pin low.
	Address = 0x60
	// Channels is the number of clock outputs.
	Channels = 3
)

const (
	DeviceStatus   = 0x00
	OutputEnable   = 0x03
	ClkControl0    = 0x10
	SpreadSpectrum = 0x95
	PLLReset       = 0xB1
)

// resetBoth soft-resets PLLA and PLLB
const resetBoth = 0xA0

var (
	ErrDivider       = errors.New("si5351: not a divider block")
	ErrNoPostDivider = errors.New("si5351: PLL blocks have no output post divider")
	ErrNotPLL        = errors.New("si5351: not a PLL block")
	ErrChannel       = errors.New("si5351: no such output channel")
	ErrNotReady      = errors.New("si5351: device did not finish initialization")
)

// Valid reports whether d is the base of one of the five divider blocks.
func (d Divider) Valid() bool {
	switch d {
	case PLLA, PLLB, MultiSynth0, MultiSynth1, MultiSynth2:
		return true
	}
	return false
}

// Output reports whether d is a MultiSynth block and so has an R divider.
func (d Divider) Output() bool {
	return d.Valid() && d >= MultiSynth0
}

// Channel is the clock output fed by a MultiSynth block, or -1 for any other block.
func (d Divider) Channel() int {
	if !d.Output() {
		return -1
	}
	return int(d-MultiSynth0) / 8
}

func (d Divider) String() string {
	switch d {
	case PLLA:
		return "PLLA"
	case PLLB:
		return "PLLB"
	case MultiSynth0, MultiSynth1, MultiSynth2:
		return fmt.Sprintf("MS%d", d.Channel())
	}
	return fmt.Sprintf("block(%#02x)", uint8(d))
}

// MultiSynth returns the divider block that drives output ch.
func MultiSynth(ch int) (Divider, error) {
	if ch < 0 || ch >= Channels {
		return 0, fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	return MultiSynth0 + Divider(8*ch), nil
}

// ParseDivider accepts the names printed by Divider.String.
func ParseDivider(s string) (Divider, error) {
	for _, d := range []Divider{PLLA, PLLB, MultiSynth0, MultiSynth1, MultiSynth2} {
		if d.String() == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrDivider, s)
}

// P1High holds bits 17:16 of P1.
func P1High(d Divider) regs.Field { return regs.Field{Reg: uint8(d) + 2, Mask: 0x03, Shift: 0} }

// DivBy4 must be 3 when a MultiSynth divides by exactly 4 and 0 otherwise.
func DivBy4(d Divider) regs.Field { return regs.Field{Reg: uint8(d) + 2, Mask: 0x0C, Shift: 2} }

// RDiv is the 3-bit post divider exponent.
func RDiv(d Divider) regs.Field { return regs.Field{Reg: uint8(d) + 2, Mask: 0x70, Shift: 4} }

func clkControl(ch int) uint8 { return ClkControl0 + uint8(ch) }

// CLKx control register fields
func ClkPowerDown(ch int) regs.Field { return regs.Field{Reg: clkControl(ch), Mask: 0x80, Shift: 7} }
func ClkInteger(ch int) regs.Field { return regs.Field{Reg: clkControl(ch), Mask: 0x40, Shift: 6} }
func ClkPLLSelect(ch int) regs.Field { return regs.Field{Reg: clkControl(ch), Mask: 0x20, Shift: 5} }
func ClkSource(ch int) regs.Field { return regs.Field{Reg: clkControl(ch), Mask: 0x0C, Shift: 2} }
func ClkDrive(ch int) regs.Field { return regs.Field{Reg: clkControl(ch), Mask: 0x03, Shift: 0} }

// OutputDisable is set to turn output ch off.
func OutputDisable(ch int) regs.Field {
	return regs.Field{Reg: OutputEnable, Mask: 1 << ch, Shift: uint8(ch)}
}

var (
	SysInit          = regs.Field{Reg: DeviceStatus, Mask: 0x80, Shift: 7}
	SpreadSpectrumOn = regs.Field{Reg: SpreadSpectrum, Mask: 0x80, Shift: 7}
)

// clock source selection for ClkSource
const sourceMultiSynth = 3

// Device programs an Si5351 through single register access.
type Device struct {
	regs         regs.Registers
	readyTimeout time.Duration
}

func New(r regs.Registers) *Device {
	return &Device{regs: r}
}

// SetReadyTimeout bounds WaitReady. Zero waits forever.
func (d *Device) SetReadyTimeout(timeout time.Duration) {
	d.readyTimeout = timeout
}

func (d *Device) ReadRegister(reg uint8) (uint8, error) {
	return d.regs.ReadRegister(reg)
}

func (d *Device) WriteRegister(reg, value uint8) error {
	return d.regs.WriteRegister(reg, value)
}

// writeOrder stores P3, then P2, then the nibble byte they share and then P1,
// low byte first. Byte 2 is handled separately.
var writeOrder = [...]uint8{1, 0, 7, 6, 5, 4, 3}

/*
WriteFractionalDivider loads a + b/c into divider block div.

Seven bytes of the block are written outright. Byte 2 is read back and only
its two low bits are replaced, so the R divider and divide-by-4 settings of the
block survive. Nothing is checked about a, b and c; out of range values wrap
as described for synth.ComputeParams.
*/
func (d *Device) WriteFractionalDivider(div Divider, a, b, c uint32) error {
	if !div.Valid() {
		return fmt.Errorf("%w: %#02x", ErrDivider, uint8(div))
	}
	block := synth.ComputeParams(a, b, c).Pack()
	for _, i := range writeOrder {
		if err := d.regs.WriteRegister(uint8(div)+i, block[i]); err != nil {
			return fmt.Errorf("%v byte %d: %w", div, i, err)
		}
	}
	return regs.Update(d.regs, P1High(div), block[2])
}

// WriteRatio is WriteFractionalDivider for a Ratio.
func (d *Device) WriteRatio(div Divider, r synth.Ratio) error {
	return d.WriteFractionalDivider(div, r.A, r.B, r.C)
}

// ReadFractionalDivider reads back the parameters held in block div.
func (d *Device) ReadFractionalDivider(div Divider) (synth.Params, error) {
	if !div.Valid() {
		return synth.Params{}, fmt.Errorf("%w: %#02x", ErrDivider, uint8(div))
	}
	var block [8]byte
	for i := range block {
		v, err := d.regs.ReadRegister(uint8(div) + uint8(i))
		if err != nil {
			return synth.Params{}, err
		}
		block[i] = v
	}
	return synth.Unpack(block), nil
}

/*
WriteOutputPostDivider sets the R divider of a MultiSynth block. value should
be a power of two from 1 to 128. Anything else, including 0 and 3, selects
divide by 128.
*/
func (d *Device) WriteOutputPostDivider(div Divider, value uint8) error {
	if !div.Output() {
		if div.Valid() {
			return fmt.Errorf("%w: %v", ErrNoPostDivider, div)
		}
		return fmt.Errorf("%w: %#02x", ErrDivider, uint8(div))
	}
	return regs.Update(d.regs, RDiv(div), PostDividerField(value))
}

// PostDividerField maps a divide ratio to the 3-bit R field.
func PostDividerField(value uint8) uint8 {
	switch value {
	case 1:
		return 0
	case 2:
		return 1
	case 4:
		return 2
	case 8:
		return 3
	case 16:
		return 4
	case 32:
		return 5
	case 64:
		return 6
	}
	return 7
}

// PostDivider is the divide ratio selected by a 3-bit R field.
func PostDivider(field uint8) uint8 {
	return 1 << (field & 7)
}
