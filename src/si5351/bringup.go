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

package si5351

import (
	"errors"
	"fmt"
	"time"

	"clockgen/src/plan"
	"clockgen/src/regs"
	"clockgen/src/synth"
)

// Drive is the output driver strength.
type Drive uint8

const (
	Drive2mA Drive = iota
	Drive4mA
	Drive6mA
	Drive8mA
)

var ErrDrive = errors.New("si5351: drive must be 2, 4, 6 or 8 mA")

// DriveMilliamps converts 2, 4, 6 or 8 mA to a Drive.
func DriveMilliamps(ma int) (Drive, error) {
	if ma < 2 || ma > 8 || ma%2 != 0 {
		return 0, fmt.Errorf("%w: %d", ErrDrive, ma)
	}
	return Drive(ma/2 - 1), nil
}

func (d Drive) Milliamps() int {
	return 2 * (int(d&3) + 1)
}

// Output describes how one clock output is driven.
type Output struct {
	Channel int
	PLL     Divider
	Ratio   synth.Ratio // MultiSynth divider
	R       uint8       // post divider, a power of two up to 128
	Drive   Drive
}

// PLLConfig is a feedback ratio for one PLL.
type PLLConfig struct {
	PLL   Divider
	Ratio synth.Ratio
}

// Setup is everything Bringup loads into the chip.
type Setup struct {
	PLLs    []PLLConfig
	Outputs []Output
}

// WaitReady polls the device status until SYS_INIT clears.
func (d *Device) WaitReady() error {
	start := time.Now()
	for {
		busy, err := regs.Read(d.regs, SysInit)
		if err != nil {
			return err
		}
		if busy == 0 {
			return nil
		}
		if d.readyTimeout > 0 && time.Since(start) > d.readyTimeout {
			return ErrNotReady
		}
	}
}

// SetPLL loads the feedback ratio of a PLL. The new ratio takes effect cleanly
// only after ResetPLLs.
func (d *Device) SetPLL(pll Divider, r synth.Ratio) error {
	if pll != PLLA && pll != PLLB {
		return fmt.Errorf("%w: %v", ErrNotPLL, pll)
	}
	return d.WriteRatio(pll, r)
}

/*
ConfigureOutput routes a PLL through the MultiSynth divider of o.Channel and
sets the drive strength, the divider and the post divider. The output is left
in whatever power state it was in; see PowerUp.

Integer mode is selected for even integer ratios and divide-by-4 only for a
ratio of exactly 4.
*/
func (d *Device) ConfigureOutput(o Output) error {
	ms, err := MultiSynth(o.Channel)
	if err != nil {
		return err
	}
	if o.PLL != PLLA && o.PLL != PLLB {
		return fmt.Errorf("%w: %v", ErrNotPLL, o.PLL)
	}
	var pllB, integer, by4 uint8
	if o.PLL == PLLB {
		pllB = 1
	}
	if o.Ratio.Integer() {
		whole := o.Ratio.A
		if o.Ratio.C != 0 {
			whole += o.Ratio.B / o.Ratio.C
		}
		if whole%2 == 0 {
			integer = 1
		}
		if whole == 4 {
			by4 = 3
		}
	}
	ch := o.Channel
	err = regs.UpdateAll(d.regs, clkControl(ch), map[regs.Field]uint8{
		ClkInteger(ch):   integer,
		ClkPLLSelect(ch): pllB,
		ClkSource(ch):    sourceMultiSynth,
		ClkDrive(ch):     uint8(o.Drive & 3),
	})
	if err != nil {
		return err
	}
	if err := regs.Update(d.regs, DivBy4(ms), by4); err != nil {
		return err
	}
	if err := d.WriteRatio(ms, o.Ratio); err != nil {
		return err
	}
	return d.WriteOutputPostDivider(ms, o.R)
}

// ResetPLLs soft-resets both PLLs so new feedback ratios lock.
func (d *Device) ResetPLLs() error {
	return d.regs.WriteRegister(PLLReset, resetBoth)
}

// PowerUp turns on the output driver of ch.
func (d *Device) PowerUp(ch int) error {
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	return regs.Update(d.regs, ClkPowerDown(ch), 0)
}

// EnableOutput turns output ch on or off.
func (d *Device) EnableOutput(ch int, on bool) error {
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	var off uint8 = 1
	if on {
		off = 0
	}
	return regs.Update(d.regs, OutputDisable(ch), off)
}

func (d *Device) DisableSpreadSpectrum() error {
	return regs.Update(d.regs, SpreadSpectrumOn, 0)
}

/*
Bringup loads a complete setup starting from an unknown state:

 1. wait for the device to finish its own initialization
 2. disable all outputs and power down their drivers
 3. disable spread spectrum
 4. load the PLLs and then the outputs
 5. reset the PLLs
 6. power up and enable each configured output
*/
func (d *Device) Bringup(s Setup) error {
	if err := d.WaitReady(); err != nil {
		return err
	}
	if err := d.regs.WriteRegister(OutputEnable, 1<<Channels-1); err != nil {
		return err
	}
	for ch := 0; ch < Channels; ch++ {
		if err := d.regs.WriteRegister(clkControl(ch), ClkPowerDown(ch).Mask); err != nil {
			return err
		}
	}
	if err := d.DisableSpreadSpectrum(); err != nil {
		return err
	}
	for _, p := range s.PLLs {
		if err := d.SetPLL(p.PLL, p.Ratio); err != nil {
			return fmt.Errorf("%v: %w", p.PLL, err)
		}
	}
	for _, o := range s.Outputs {
		if err := d.ConfigureOutput(o); err != nil {
			return fmt.Errorf("clk%d: %w", o.Channel, err)
		}
	}
	if err := d.ResetPLLs(); err != nil {
		return err
	}
	for _, o := range s.Outputs {
		if err := d.PowerUp(o.Channel); err != nil {
			return err
		}
		if err := d.EnableOutput(o.Channel, true); err != nil {
			return err
		}
	}
	return nil
}

// SetFrequency applies a plan to one output fed by pll. Both PLLs are reset, so
// other outputs sharing a PLL glitch briefly.
func (d *Device) SetFrequency(ch int, pll Divider, p plan.Plan, drive Drive) error {
	// nothing is written unless both the channel and the PLL exist
	if ch < 0 || ch >= Channels {
		return fmt.Errorf("%w: %d", ErrChannel, ch)
	}
	if pll != PLLA && pll != PLLB {
		return fmt.Errorf("%w: %v", ErrNotPLL, pll)
	}
	if err := d.SetPLL(pll, p.PLL); err != nil {
		return err
	}
	err := d.ConfigureOutput(Output{Channel: ch, PLL: pll, Ratio: p.MultiSynth, R: p.R, Drive: drive})
	if err != nil {
		return err
	}
	if err := d.ResetPLLs(); err != nil {
		return err
	}
	if err := d.PowerUp(ch); err != nil {
		return err
	}
	return d.EnableOutput(ch, true)
}
