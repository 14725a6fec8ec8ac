//go:build linux

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

package i2cdev

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// no machine has adapter 4000, so every access fails when opening it
func Test_missingAdapter(t *testing.T) {
	assert := assert.New(t)
	d := New(4000, 0x60)
	assert.Equal("i2c-4000@0x60", d.String())

	_, err := d.ReadRegister(0)
	assert.ErrorContains(err, "i2c-4000@0x60: read 00")
	assert.ErrorContains(d.WriteRegister(0xb1, 0xa0), "i2c-4000@0x60: write b1")
}
