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

package plan

import (
	"errors"
	"math"
	"testing"

	"clockgen/src/synth"
)

var seed = int64(1)

func rand() float64 {
	seed = 25214903917*seed + 11
	return float64(seed&0xffff_ffff_ffff) / float64(1<<48)
}

func Test_accuracy(t *testing.T) {
	bands := [][]float64{
		{1838000, 1838200},
		{3570000, 3570200},
		{5288600, 5288800},
		{7040000, 7040200},
		{10140100, 10140300},
		{14097000, 14097200},
		{18106000, 18106200},
		{21096000, 21096200},
		{24926000, 24926200},
		{28126000, 28126200},
		{50294400, 50294600},
		{144489900, 144490100},
	}
	for _, band := range bands {
		for f := band[0]; f <= band[1]; f += rand() * 0.2 {
			p, err := New(25e6, 0.0, f)
			if err != nil {
				t.Fatalf("New(%.3f): %s", f, err)
			}
			if math.Abs(p.Error)/f > 1e-9 {
				t.Errorf("big discrepancy: %.4f, %.2f vs %.2f", p.Error, p.Freq, f)
			}
		}
	}
}

func Test_range(t *testing.T) {
	for f := 1.0; f < 2300; f += 50 {
		if _, err := New(25e6, 0.0, f); !errors.Is(err, ErrOutputTooLow) {
			t.Errorf("f = %.3f: expected ErrOutputTooLow, got %v", f, err)
		}
	}
	for f := 2302.0; f < 200e6; f *= 1.2 {
		p, err := New(25e6, 0.0, f)
		if err != nil {
			t.Errorf("f = %.3f: %s", f, err)
			continue
		}
		if math.Abs(p.Error) > 1e-3 {
			t.Errorf("f = %.3f: error %.3g Hz", f, p.Error)
		}
		checkLimits(t, p)
	}
}

func checkLimits(t *testing.T, p Plan) {
	t.Helper()
	if z := p.PLL.Float(); z < 15 || z > 90 {
		t.Errorf("%v: feedback ratio %.4f out of range", p, z)
	}
	if z := p.MultiSynth.Float(); z > 2048 || (z < 8 && z != 4 && z != 6) {
		t.Errorf("%v: multisynth ratio %.4f out of range", p, z)
	}
	if p.R == 0 || p.R&(p.R-1) != 0 {
		t.Errorf("%v: R = %d is not a power of two", p, p.R)
	}
	for _, r := range []synth.Ratio{p.PLL, p.MultiSynth} {
		if r.C == 0 || r.C >= maxDenominator || r.B >= r.C {
			t.Errorf("%v: %v is not a normalized 20-bit fraction", p, r)
		}
	}
}

// the bring-up demo: 25MHz x26 = 650MHz, / (1083+1/3) / 2 = 300kHz
func Test_demo(t *testing.T) {
	p, err := New(25e6, 650e6, 300e3)
	if err != nil {
		t.Fatal(err)
	}
	if p.PLL != (synth.Ratio{A: 26, B: 0, C: 1}) {
		t.Errorf("PLL = %v", p.PLL)
	}
	if p.MultiSynth != (synth.Ratio{A: 1083, B: 1, C: 3}) {
		t.Errorf("MultiSynth = %v", p.MultiSynth)
	}
	if p.R != 2 {
		t.Errorf("R = %d", p.R)
	}
	if math.Abs(p.Freq-300e3) > 1e-6 {
		t.Errorf("Freq = %.6f", p.Freq)
	}
}

func Test_highFrequency(t *testing.T) {
	tests := []struct {
		f  float64
		ms uint32
	}{
		{160e6, 4},
		{200e6, 4},
		{120e6, 6},
	}
	for _, tt := range tests {
		p, err := New(25e6, 0, tt.f)
		if err != nil {
			t.Errorf("New(%g): %v", tt.f, err)
			continue
		}
		if p.MultiSynth != (synth.Ratio{A: tt.ms, B: 0, C: 1}) || p.R != 1 {
			t.Errorf("New(%g) = %v, want ms %d", tt.f, p, tt.ms)
		}
	}
}

func Test_invalid(t *testing.T) {
	tests := []struct {
		name       string
		f0, pll, f float64
		want       error
	}{
		{"slow crystal", 8e6, 0, 10e6, ErrCrystal},
		{"fast crystal", 30e6, 0, 10e6, ErrCrystal},
		{"too fast", 25e6, 0, 201e6, ErrOutputTooHigh},
		{"pll low", 25e6, 500e6, 10e6, ErrPLLRange},
		{"pll high", 25e6, 950e6, 10e6, ErrPLLRange},
		{"ratio below 8", 25e6, 600e6, 90e6, ErrMultiSynthLow},
		{"zero output", 25e6, 0, 0, ErrOutputTooLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New(tt.f0, tt.pll, tt.f); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}
