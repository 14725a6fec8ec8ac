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

package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockgen/src/sim"
	"clockgen/src/twowire"
)

func Test_autoIncrement(t *testing.T) {
	assert := assert.New(t)
	c := sim.New()
	bus := twowire.New(c, sim.Address)

	require.NoError(t, bus.WriteFrame([]byte{0x2a, 0x01, 0x02, 0x03}, true))
	assert.Equal([]sim.Write{
		{Reg: 0x2a, Value: 0x01},
		{Reg: 0x2b, Value: 0x02},
		{Reg: 0x2c, Value: 0x03},
	}, c.Writes())
	assert.Equal("2b=02", c.Writes()[1].String())

	require.NoError(t, bus.WriteFrame([]byte{0x2a}, false))
	require.NoError(t, bus.WaitTransferComplete())
	got, err := bus.ReadFrame(3)
	require.NoError(t, err)
	assert.Equal([]byte{0x01, 0x02, 0x03}, got)
	assert.Len(c.Writes(), 3, "a bare pointer write stores nothing")
}

func Test_initializing(t *testing.T) {
	assert := assert.New(t)
	c := sim.New()
	c.SetReg(0x00, 0x10)
	c.SetInitializing(2)
	bus := twowire.New(c, sim.Address)

	var seen []byte
	for i := 0; i < 3; i++ {
		require.NoError(t, bus.WriteFrame([]byte{0x00}, false))
		require.NoError(t, bus.WaitTransferComplete())
		v, err := bus.ReadFrame(1)
		require.NoError(t, err)
		seen = append(seen, v[0])
	}
	assert.Equal([]byte{0x90, 0x90, 0x10}, seen)
	assert.Equal(uint8(0x10), c.Reg(0x00))
}

func Test_absent(t *testing.T) {
	c := sim.New()
	c.Setup(twowire.Frame{Target: sim.Address + 1, Dir: twowire.Write, Count: 1, AutoStop: true})
	c.Start()
	assert.Equal(t, twowire.Status(0), c.Status())
	c.Transmit(0x10)
	assert.Equal(t, twowire.Status(0), c.Status())
	assert.Empty(t, c.Writes())
}

func Test_hang(t *testing.T) {
	c := sim.New()
	c.Hang = true
	c.Setup(twowire.Frame{Target: sim.Address, Dir: twowire.Read, Count: 1})
	c.Start()
	assert.Equal(t, twowire.Status(0), c.Status())
	c.Hang = false
	assert.Equal(t, twowire.RxNotEmpty, c.Status())
}

func Test_reset(t *testing.T) {
	assert := assert.New(t)
	c := sim.New()
	bus := twowire.New(c, sim.Address)
	require.NoError(t, bus.WriteFrame([]byte{0xb1, 0xa0}, true))

	c.Reset()
	assert.Empty(c.Trace())
	assert.Empty(c.Writes())
	regs := c.Registers()
	assert.Equal(byte(0xa0), regs[0xb1])

	regs[0xb1] = 0
	assert.Equal(uint8(0xa0), c.Reg(0xb1), "Registers returns a copy")
}
