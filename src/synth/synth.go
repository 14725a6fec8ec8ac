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

package synth

import "fmt"

const (
	mask18 = 0x3_ffff
	mask20 = 0xf_ffff
)

// Ratio is the divider value A + B/C. C must not be zero and B < C is the
// normal form, but neither is enforced here.
type Ratio struct {
	A, B, C uint32
}

func (r Ratio) Float() float64 {
	return float64(r.A) + float64(r.B)/float64(r.C)
}

// Integer reports whether r has no fractional part.
func (r Ratio) Integer() bool {
	return r.B == 0 || (r.C != 0 && r.B%r.C == 0)
}

func (r Ratio) String() string {
	return fmt.Sprintf("%d+%d/%d", r.A, r.B, r.C)
}

func (r Ratio) Params() Params {
	return ComputeParams(r.A, r.B, r.C)
}

// Params are the three fixed-point register fields that encode a Ratio.
type Params struct {
	P1, P2, P3 uint32
}

/*
ComputeParams converts a + b/c into the chip's encoding

	P1 = 128a + floor(128b/c) - 512
	P2 = 128b - c*floor(128b/c)
	P3 = c

The floor term is evaluated in single precision and truncated. For large b
and c the truncated value can differ from the exact floor and the frequency
comes out slightly off. All arithmetic is 32-bit unsigned and the results are
masked, not saturated, to 18, 20 and 20 bits, so values outside the chip's
range silently wrap.
*/
func ComputeParams(a, b, c uint32) Params {
	t := uint32(128 * float32(b) / float32(c))
	return Params{
		P1: (128*a + t - 512) & mask18,
		P2: (128*b - c*t) & mask20,
		P3: c & mask20,
	}
}

// Value reconstructs a + b/c from the encoded fields.
func (p Params) Value() float64 {
	v := (float64(p.P1) + 512) / 128
	if p.P3 != 0 {
		v += float64(p.P2) / (128 * float64(p.P3))
	}
	return v
}

/*
Pack lays the parameters out the way an eight register divider block holds
them, indexed from the block's base address:

	0: P3[15:8]
	1: P3[7:0]
	2: P1[17:16] in bits 1:0, other bits belong to unrelated fields
	3: P1[15:8]
	4: P1[7:0]
	5: P3[19:16] in bits 7:4, P2[19:16] in bits 3:0
	6: P2[15:8]
	7: P2[7:0]
*/
func (p Params) Pack() [8]byte {
	return [8]byte{
		byte(p.P3 >> 8),
		byte(p.P3),
		byte(p.P1>>16) & 0x03,
		byte(p.P1 >> 8),
		byte(p.P1),
		byte(p.P3>>12)&0xf0 | byte(p.P2>>16)&0x0f,
		byte(p.P2 >> 8),
		byte(p.P2),
	}
}

// Unpack is the inverse of Pack. Bits of byte 2 above P1 are ignored.
func Unpack(b [8]byte) Params {
	return Params{
		P1: uint32(b[2]&0x03)<<16 | uint32(b[3])<<8 | uint32(b[4]),
		P2: uint32(b[5]&0x0f)<<16 | uint32(b[6])<<8 | uint32(b[7]),
		P3: uint32(b[5]&0xf0)<<12 | uint32(b[0])<<8 | uint32(b[1]),
	}
}
