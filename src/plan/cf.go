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

/*
NearestFraction finds the best approximation c/d ≈ a/b such that d <= max_denominator.

Returns c, d and the error a/b - c/d as floating point.

The approximation is built from the terms of a continued fraction, stopping
just before the denominator of the next convergent would be too big.

Picking a fixed denominator instead is much worse. Dividing a 900MHz PLL down
to four WSPR tones 1.4648 Hz apart near 144.490 MHz with c fixed at 2^20-1
gives four identical frequencies. The nearest fraction lands every tone within
half a millihertz, which is what the 20-bit P3 field is really good for.
*/
func NearestFraction(a, b, max_denominator uint64) (c, d uint64, eps float64) {
	c, d = continuedFraction(a, b, 0, 1, max_denominator)
	eps = float64(a)/float64(b) - float64(c)/float64(d)
	return c, d, eps
}

/*
continuedFraction returns the rational value of a continued fraction
approximation of a/b as two integers.

Any rational a/b can be written as

	cf(a, b) = floor(a/b) + rem(a/b) / b = floor(a/b) + 1 / cf(b, rem(a/b))

and the convergents of that expansion are the best rational approximations for
their denominator. e and f carry the denominators of the two previous
convergents (start with 0 and 1) so each level knows whether its own
convergent would exceed the limit. A level that would returns 1/0, which
makes its caller drop the term.
*/
func continuedFraction(a, b, e, f, max_denominator uint64) (c, d uint64) {
	term := a / b
	denom := f + term*e
	if denom > max_denominator {
		return 1, 0
	}
	ax := a - term*b
	if ax == 0 {
		return term, 1
	}
	// a / b = term + ax/b = term + 1 / cf(b, ax)
	cx, dx := continuedFraction(b, ax, denom, e, max_denominator)
	return term*cx + dx, cx
}
