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
	"fmt"
	"math"

	"clockgen/src/synth"
)

// largest denominator the 20-bit P3 field can hold
const maxDenominator = 1 << 20

var (
	ErrCrystal        = errors.New("plan: invalid crystal frequency")
	ErrOutputTooHigh  = errors.New("plan: output frequency > 200MHz")
	ErrPLLRange       = errors.New("plan: pll is out of range")
	ErrFeedbackRatio  = errors.New("plan: feedback ratio out of range")
	ErrMultiSynthLow  = errors.New("plan: output multi-synth ratio too small")
	ErrOutputTooLow   = errors.New("plan: output divider ratio too big, f_out too low")
	ErrFrequencyError = errors.New("plan: frequency error is out of range")
)

// Plan is a complete set of divider values for one output.
type Plan struct {
	Crystal    float64     // reference frequency (Hz)
	PLLFreq    float64     // PLL (VCO) frequency actually produced (Hz)
	Freq       float64     // output frequency actually produced (Hz)
	PLL        synth.Ratio // feedback ratio, 15..90
	MultiSynth synth.Ratio // output divider, 4, 6 or 8..2048
	R          uint8       // post divider, a power of two up to 128
	Error      float64     // requested minus produced frequency (Hz)
}

/*
New computes configuration parameters for the PLL and multi-synth fractional
dividers of an Si5351.

The parameter `f0` is the crystal frequency (in Hz) for the generator (typically
25 or 27MHz), `pll` is the PLL frequency (in Hz) in the range of 600..900MHz, `f` is the
desired output frequency (in Hz). If `pll` is zero, then a suitable value will be
chosen. Above 100MHz the PLL is always forced to an even integer multiple of `f`.

The result satisfies f = f0 * PLL / (MultiSynth * R) to within as small a
tolerance as the 20-bit denominators allow.

An error is returned if the routine cannot find good parameters for the dividers
or if the input is invalid.
*/
func New(f0, pll, f float64) (Plan, error) {
	if f0 < 10e6 || f0 > 27e6 {
		return Plan{}, ErrCrystal
	}
	if f <= 0 {
		return Plan{}, ErrOutputTooLow
	}
	if f > 200e6 {
		return Plan{}, ErrOutputTooHigh
	}

	if f > 150e6 {
		pll = 4 * f
	} else if f >= 100e6 {
		pll = 6 * f
	} else if pll == 0 {
		if f < 5e6 {
			pll = 600e6
		} else {
			pll = 800e6
		}
	} else if pll < 600e6 || pll > 900e6 {
		return Plan{}, ErrPLLRange
	}

	z := pll / f0
	if z < 15 || z > 90 {
		return Plan{}, fmt.Errorf("%w: %.5g", ErrFeedbackRatio, z)
	}
	r := Plan{
		Crystal: f0,
		PLL:     ratio(z),
	}
	r.PLLFreq = f0 * r.PLL.Float()

	z = r.PLLFreq / f
	if !near(z, 4, 1e-9) && !near(z, 6, 1e-9) && z < 8 {
		return Plan{}, fmt.Errorf("%w: %.5g", ErrMultiSynthLow, z)
	}
	div := uint32(1)
	for z/float64(div) > 2048 && div <= 128 {
		div *= 2
	}
	if div > 128 {
		return Plan{}, ErrOutputTooLow
	}
	r.R = uint8(div)
	r.MultiSynth = ratio(z / float64(div))

	r.Freq = r.PLLFreq / (r.MultiSynth.Float() * float64(r.R))
	r.Error = f - r.Freq
	if math.Abs(r.Error)/f > 1e-6 {
		return Plan{}, fmt.Errorf("%w: %.3g Hz", ErrFrequencyError, r.Error)
	}
	return r, nil
}

// ratio finds the best a + b/c for z with c below 2^20.
func ratio(z float64) synth.Ratio {
	b, c, _ := NearestFraction(uint64(math.Round(z*1e12)), 1_000_000_000_000, maxDenominator-1)
	return synth.Ratio{
		A: uint32(b / c),
		B: uint32(b % c),
		C: uint32(c),
	}
}

func near(a float64, b float64, eps float64) bool {
	return math.Abs(a-b) <= eps
}

func (p Plan) String() string {
	return fmt.Sprintf("pll %v (%.6f MHz), ms %v, r %d: %.3f Hz (err %.3g Hz)",
		p.PLL, p.PLLFreq/1e6, p.MultiSynth, p.R, p.Freq, p.Error)
}
