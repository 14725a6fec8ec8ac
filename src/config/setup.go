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
	"time"

	"clockgen/src/plan"
	"clockgen/src/si5351"
	"clockgen/src/synth"
)

var ErrPLLConflict = errors.New("config: outputs need different ratios from the same PLL")

/*
Setup turns a validated and normalized configuration into the dividers that
si5351.Device.Bringup loads.

Outputs given by frequency are planned against the crystal. When their PLL
already has a ratio, from plls or from an earlier output, the plan must use
that PLL frequency and land on the same ratio, otherwise ErrPLLConflict is
returned. PLLs appear in the result in the order they were first fixed.
*/
func Setup(cfg *Config) (si5351.Setup, error) {
	var s si5351.Setup
	ratios := make(map[si5351.Divider]synth.Ratio)
	var order []si5351.Divider

	for _, p := range cfg.PLLs {
		pll, err := pllByName(p.Name)
		if err != nil {
			return s, err
		}
		ratios[pll] = toRatio(p.Ratio)
		order = append(order, pll)
	}

	for _, o := range cfg.Outputs {
		pll, err := pllByName(o.PLL)
		if err != nil {
			return s, err
		}
		drive, err := si5351.DriveMilliamps(o.DriveMa)
		if err != nil {
			return s, fmt.Errorf("clk%d: %w", o.Channel, err)
		}
		out := si5351.Output{Channel: o.Channel, PLL: pll, Drive: drive}
		fixed, ok := ratios[pll]

		if o.Ratio != nil {
			if !ok {
				return s, invalid("clk%d: %v has no ratio", o.Channel, pll)
			}
			out.Ratio = toRatio(*o.Ratio)
			out.R = o.RDiv
			s.Outputs = append(s.Outputs, out)
			continue
		}

		pllHz := o.PLLHz
		if ok && pllHz == 0 {
			pllHz = cfg.CrystalHz * fixed.Float()
		}
		p, err := plan.New(cfg.CrystalHz, pllHz, o.FrequencyHz)
		if err != nil {
			return s, fmt.Errorf("clk%d: %w", o.Channel, err)
		}
		if ok && !sameRatio(p.PLL, fixed) {
			return s, fmt.Errorf("%w: clk%d wants %v = %v, have %v", ErrPLLConflict, o.Channel, pll, p.PLL, fixed)
		}
		if !ok {
			ratios[pll] = p.PLL
			order = append(order, pll)
		}
		out.Ratio = p.MultiSynth
		out.R = p.R
		s.Outputs = append(s.Outputs, out)
	}

	for _, pll := range order {
		s.PLLs = append(s.PLLs, si5351.PLLConfig{PLL: pll, Ratio: ratios[pll]})
	}
	return s, nil
}

// Timeout is the bus wait bound, zero for none.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.Bus.TimeoutMs) * time.Millisecond
}

// Frequency is the frequency s produces on output o.
func Frequency(crystalHz float64, s si5351.Setup, o si5351.Output) float64 {
	if o.R == 0 || o.Ratio.C == 0 {
		return 0
	}
	for _, p := range s.PLLs {
		if p.PLL == o.PLL {
			return crystalHz * p.Ratio.Float() / (o.Ratio.Float() * float64(o.R))
		}
	}
	return 0
}

func toRatio(r RatioConfig) synth.Ratio {
	return synth.Ratio{A: r.A, B: r.B, C: r.C}
}

// sameRatio compares exactly, so 26+0/1 and 26+0/2 are the same.
func sameRatio(x, y synth.Ratio) bool {
	return x.A == y.A && uint64(x.B)*uint64(y.C) == uint64(y.B)*uint64(x.C)
}
