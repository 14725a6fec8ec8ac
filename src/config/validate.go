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

package config

import (
	"errors"
	"fmt"

	"clockgen/src/si5351"
)

var ErrInvalid = errors.New("config: invalid")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Validate checks a configuration without changing it. Zero values that
// Normalize will replace with defaults are accepted.
func Validate(cfg *Config) error {
	if cfg == nil {
		return invalid("no configuration")
	}
	if cfg.CrystalHz != 0 && (cfg.CrystalHz < 10e6 || cfg.CrystalHz > 27e6) {
		return invalid("crystal_hz %.0f is outside 10..27MHz", cfg.CrystalHz)
	}
	if cfg.Bus.Address > 0x7f {
		return invalid("bus address %#x is not a 7-bit address", cfg.Bus.Address)
	}
	if cfg.Bus.Index < 0 || cfg.Bus.TimeoutMs < 0 {
		return invalid("bus index and timeout_ms must not be negative")
	}

	defined := make(map[si5351.Divider]bool)
	for _, p := range cfg.PLLs {
		pll, err := pllByName(p.Name)
		if err != nil {
			return err
		}
		if defined[pll] {
			return invalid("%v is defined twice", pll)
		}
		defined[pll] = true
		if err := checkRatio(p.Ratio); err != nil {
			return fmt.Errorf("%v: %w", pll, err)
		}
		if z := ratioValue(p.Ratio); z < 15 || z > 90 {
			return invalid("%v: feedback ratio %.4f is outside 15..90", pll, z)
		}
	}

	used := make(map[int]bool)
	for _, o := range cfg.Outputs {
		if o.Channel < 0 || o.Channel >= si5351.Channels {
			return invalid("no output channel %d", o.Channel)
		}
		if used[o.Channel] {
			return invalid("clk%d is defined twice", o.Channel)
		}
		used[o.Channel] = true
		if err := validateOutput(o, defined); err != nil {
			return fmt.Errorf("clk%d: %w", o.Channel, err)
		}
	}
	return nil
}

func validateOutput(o OutputConfig, defined map[si5351.Divider]bool) error {
	pll, err := pllByName(o.PLL)
	if err != nil {
		return err
	}
	if o.DriveMa != 0 {
		if _, err := si5351.DriveMilliamps(o.DriveMa); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalid, err)
		}
	}
	planned := o.FrequencyHz != 0
	if planned == (o.Ratio != nil) {
		return invalid("exactly one of frequency_hz and ratio is needed")
	}
	if planned {
		if o.FrequencyHz < 0 || o.FrequencyHz > 200e6 {
			return invalid("frequency_hz %.3f is outside 0..200MHz", o.FrequencyHz)
		}
		if o.PLLHz != 0 && (o.PLLHz < 600e6 || o.PLLHz > 900e6) {
			return invalid("pll_hz %.0f is outside 600..900MHz", o.PLLHz)
		}
		if o.RDiv != 0 {
			return invalid("r_div is chosen by the planner when frequency_hz is given")
		}
		return nil
	}

	if o.PLLHz != 0 {
		return invalid("pll_hz only applies with frequency_hz")
	}
	if !defined[pll] {
		return invalid("%v has no ratio in plls", pll)
	}
	if err := checkRatio(*o.Ratio); err != nil {
		return err
	}
	if z := ratioValue(*o.Ratio); z != 4 && z != 6 && (z < 8 || z > 2048) {
		return invalid("multisynth ratio %.4f must be 4, 6 or 8..2048", z)
	}
	if o.RDiv != 0 && (o.RDiv&(o.RDiv-1) != 0) {
		return invalid("r_div %d is not a power of two", o.RDiv)
	}
	return nil
}

// pllByName accepts PLLA, PLLB or nothing, which means PLLA.
func pllByName(name string) (si5351.Divider, error) {
	if name == "" {
		return si5351.PLLA, nil
	}
	d, err := si5351.ParseDivider(name)
	if err != nil || d.Output() {
		return 0, invalid("%q is not a PLL", name)
	}
	return d, nil
}

func checkRatio(r RatioConfig) error {
	if r.C == 0 || r.C >= 1<<20 {
		return invalid("ratio denominator %d must be 1..2^20-1", r.C)
	}
	if r.B >= r.C {
		return invalid("ratio %d/%d is not a proper fraction", r.B, r.C)
	}
	return nil
}

func ratioValue(r RatioConfig) float64 {
	return float64(r.A) + float64(r.B)/float64(r.C)
}
