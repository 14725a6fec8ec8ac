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

package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clockgen/src/regs"
	"clockgen/src/si5351"
	"clockgen/src/sim"
	"clockgen/src/synth"
	"clockgen/src/twowire"
)

func newShell() (*sim.Controller, *bytes.Buffer, *Shell) {
	c := sim.New()
	dev := si5351.New(regs.New(twowire.New(c, sim.Address)))
	var out bytes.Buffer
	s := New(dev, &out)
	s.SetTracer(c.Trace, c.Reset)
	return c, &out, s
}

func Test_script(t *testing.T) {
	assert := assert.New(t)
	c, out, s := newShell()

	script := `
# the 300kHz demo by hand
pll PLLA 26 0 1
ms 0 1083 1 3
rdiv MS0 2
read 0x2c
write 0x10 (3<<2)|1
bogus
quit
read 0
`
	require.NoError(t, s.Run(strings.NewReader(script)))

	assert.Equal(uint8(0x0D), c.Reg(0x10))
	assert.Equal(uint8(0x01), c.Reg(0x1B))
	assert.Equal(uint8(0xAA), c.Reg(0x2E))
	assert.Equal("2c: 12\nerror: shell: unknown command: \"bogus\"\n", out.String())
}

func Test_trace(t *testing.T) {
	assert := assert.New(t)
	_, out, s := newShell()

	_, err := s.Exec("write PLLA+1 0x0a")
	assert.NoError(err)
	_, err = s.Exec("trace")
	assert.NoError(err)
	assert.Equal("write n=2 autostop\nstart\ntx 1b\ntx 0a\nstop\n", out.String())
}

func Test_noTrace(t *testing.T) {
	c := sim.New()
	s := New(si5351.New(regs.New(twowire.New(c, sim.Address))), &bytes.Buffer{})
	_, err := s.Exec("trace")
	assert.ErrorIs(t, err, ErrNoTrace)
}

func Test_freq(t *testing.T) {
	assert := assert.New(t)
	c, out, s := newShell()
	c.SetReg(si5351.OutputEnable, 0x07)

	_, err := s.Exec("freq 1 10*MHz PLLB")
	require.NoError(t, err)
	assert.Contains(out.String(), "clk1: ")
	assert.Equal(uint8(0x05), c.Reg(si5351.OutputEnable))

	dev := si5351.New(regs.New(twowire.New(c, sim.Address)))
	p, err := dev.ReadFractionalDivider(si5351.MultiSynth1)
	require.NoError(t, err)
	assert.Equal(synth.Ratio{A: 80, B: 0, C: 1}.Params(), p)

	_, err = s.Exec("freq 0 14.097e6 MS0")
	assert.ErrorIs(err, si5351.ErrNotPLL)
}

func Test_dump(t *testing.T) {
	assert := assert.New(t)
	_, out, s := newShell()

	for _, line := range []string{"pll PLLB 30 1 2", "ms 2 8 0 1", "rdiv 2 128"} {
		_, err := s.Exec(line)
		require.NoError(t, err, line)
	}
	out.Reset()
	_, err := s.Exec("dump")
	require.NoError(t, err)
	text := out.String()
	assert.Contains(text, "PLLB p1=3392 p2=0 p3=2 ratio=30.500000\n")
	assert.Contains(text, "MS2  p1=512 p2=0 p3=1 ratio=8.000000 r=128\n")
	assert.Contains(text, "clk0 control: 00\n")
}

func Test_errors(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"read", ErrUsage},
		{"read 1 2", ErrUsage},
		{"read 0x100", ErrExpression},
		{"read 1.5", ErrExpression},
		{"write 3 nope", ErrExpression},
		{"pll MS0 30 0 1", si5351.ErrNotPLL},
		{"ms 3 30 0 1", si5351.ErrChannel},
		{"rdiv PLLA 2", si5351.ErrChannel},
		{"ms 0 -1 0 1", ErrExpression},
		{"freq 0 1", nil},
		{"frob", ErrCommand},
		{"read 'unterminated", ErrUsage},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			_, _, s := newShell()
			_, err := s.Exec(tt.line)
			if tt.want == nil {
				assert.Error(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func Test_quit(t *testing.T) {
	_, _, s := newShell()
	for _, line := range []string{"quit", "exit", "  quit  "} {
		quit, err := s.Exec(line)
		assert.NoError(t, err)
		assert.True(t, quit, line)
	}
	quit, err := s.Exec("# nothing")
	assert.NoError(t, err)
	assert.False(t, quit)
}

func Test_help(t *testing.T) {
	_, out, s := newShell()
	_, err := s.Exec("help")
	assert.NoError(t, err)
	assert.Contains(t, out.String(), "freq CH HZ [PLL]\n")
	assert.Contains(t, out.String(), "dump\n")
}
