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

package si5351_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockgen/src/regs"
	"clockgen/src/si5351"
	"clockgen/src/sim"
	"clockgen/src/synth"
	"clockgen/src/twowire"
)

func newDevice() (*sim.Controller, *twowire.Bus, *si5351.Device) {
	c := sim.New()
	bus := twowire.New(c, sim.Address)
	return c, bus, si5351.New(regs.New(bus))
}

func Test_multiSynthWriteOrder(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()
	c.SetReg(0x2C, 0x7C)

	assert.NoError(d.WriteFractionalDivider(si5351.MultiSynth0, 1083, 1, 3))
	assert.Equal([]sim.Write{
		{Reg: 0x2B, Value: 0x03}, {Reg: 0x2A, Value: 0x00},
		{Reg: 0x31, Value: 0x02}, {Reg: 0x30, Value: 0x00},
		{Reg: 0x2F, Value: 0x00},
		{Reg: 0x2E, Value: 0xAA}, {Reg: 0x2D, Value: 0x1B},
		{Reg: 0x2C, Value: 0x7E},
	}, c.Writes())
}

func Test_pllWriteOrder(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()
	c.SetReg(0x1C, 0xF3)

	assert.NoError(d.WriteFractionalDivider(si5351.PLLA, 26, 0, 1))
	assert.Equal([]sim.Write{
		{Reg: 0x1B, Value: 0x01}, {Reg: 0x1A, Value: 0x00},
		{Reg: 0x21, Value: 0x00}, {Reg: 0x20, Value: 0x00},
		{Reg: 0x1F, Value: 0x00},
		{Reg: 0x1E, Value: 0x00}, {Reg: 0x1D, Value: 0x0B},
		{Reg: 0x1C, Value: 0xF0},
	}, c.Writes())
}

func Test_idempotent(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()

	for _, div := range []si5351.Divider{si5351.PLLB, si5351.MultiSynth2} {
		assert.NoError(d.WriteFractionalDivider(div, 871, 12345, 99991))
		once := c.Registers()
		first := c.Writes()
		c.Reset()
		assert.NoError(d.WriteFractionalDivider(div, 871, 12345, 99991))
		assert.Equal(once, c.Registers(), "%v", div)
		assert.Equal(first, c.Writes(), "%v", div)
		c.Reset()
	}
}

func Test_sharedByte(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()
	p1 := synth.ComputeParams(1083, 1, 3).P1

	for v := 0; v < 256; v++ {
		c.SetReg(0x34, uint8(v))
		assert.NoError(d.WriteFractionalDivider(si5351.MultiSynth1, 1083, 1, 3))
		got := c.Reg(0x34)
		assert.Equal(uint8(v)&0xFC, got&0xFC, "preset %02x", v)
		assert.Equal(uint8(p1>>16), got&0x03, "preset %02x", v)

		c.SetReg(0x34, uint8(v))
		assert.NoError(d.WriteOutputPostDivider(si5351.MultiSynth1, 16))
		got = c.Reg(0x34)
		assert.Equal(uint8(v)&^0x70, got&^0x70, "preset %02x", v)
		assert.Equal(uint8(4), (got&0x70)>>4, "preset %02x", v)
	}
}

func Test_postDividerField(t *testing.T) {
	assert := assert.New(t)
	tests := []struct {
		value, field uint8
	}{
		{1, 0}, {2, 1}, {4, 2}, {8, 3}, {16, 4}, {32, 5}, {64, 6}, {128, 7},
		{0, 7}, {3, 7}, {5, 7}, {129, 7}, {255, 7},
	}
	for _, tt := range tests {
		assert.Equal(tt.field, si5351.PostDividerField(tt.value), "value %d", tt.value)
	}
	for f := uint8(0); f < 8; f++ {
		assert.Equal(f, si5351.PostDividerField(si5351.PostDivider(f)))
	}
}

func Test_postDividerFraming(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()

	assert.NoError(d.WriteOutputPostDivider(si5351.MultiSynth0, 2))
	assert.Equal([]string{
		"write n=1", "start", "tx 2c", "tc",
		"read n=1", "start", "rx 00", "stop",
		"write n=2 autostop", "start", "tx 2c", "tx 10", "stop",
	}, c.Trace())
}

func Test_blockErrors(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()

	assert.ErrorIs(d.WriteOutputPostDivider(si5351.PLLA, 2), si5351.ErrNoPostDivider)
	assert.ErrorIs(d.WriteOutputPostDivider(si5351.PLLB, 2), si5351.ErrNoPostDivider)
	assert.ErrorIs(d.WriteOutputPostDivider(0x10, 2), si5351.ErrDivider)
	assert.ErrorIs(d.WriteFractionalDivider(0x2B, 20, 0, 1), si5351.ErrDivider)
	assert.Empty(c.Trace())
}

func Test_busErrors(t *testing.T) {
	c, bus, d := newDevice()
	bus.SetTimeout(5 * time.Millisecond)
	c.Hang = true

	err := d.WriteFractionalDivider(si5351.MultiSynth0, 1083, 1, 3)
	assert.ErrorIs(t, err, twowire.ErrTimeout)
	assert.ErrorIs(t, d.WriteOutputPostDivider(si5351.MultiSynth0, 4), twowire.ErrTimeout)
}

func Test_readBack(t *testing.T) {
	assert := assert.New(t)
	c, _, d := newDevice()
	c.SetReg(0x3C, 0x50)

	assert.NoError(d.WriteFractionalDivider(si5351.MultiSynth2, 1234, 5678, 9999))
	p, err := d.ReadFractionalDivider(si5351.MultiSynth2)
	assert.NoError(err)
	assert.Equal(synth.ComputeParams(1234, 5678, 9999), p)
	assert.InDelta(1234+5678.0/9999, p.Value(), 1.0/128)
}

func Test_dividerNames(t *testing.T) {
	assert := assert.New(t)
	for ch := 0; ch < si5351.Channels; ch++ {
		ms, err := si5351.MultiSynth(ch)
		require.NoError(t, err)
		assert.True(ms.Output())
		assert.Equal(ch, ms.Channel())
		back, err := si5351.ParseDivider(ms.String())
		assert.NoError(err)
		assert.Equal(ms, back)
	}
	_, err := si5351.MultiSynth(3)
	assert.ErrorIs(err, si5351.ErrChannel)
	_, err = si5351.ParseDivider("MS9")
	assert.ErrorIs(err, si5351.ErrDivider)
	assert.Equal("PLLB", si5351.PLLB.String())
	assert.False(si5351.PLLA.Output())
	assert.Equal(-1, si5351.PLLA.Channel())
	assert.Equal(-1, si5351.PLLB.Channel())
	assert.Equal(-1, si5351.Divider(0x42).Channel())
	assert.False(si5351.Divider(0x42).Valid())
}
