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

/*
Package shell is a line oriented console for poking at an Si5351.

	read REG              show one register
	write REG VALUE       store one register
	pll PLL A B C         load a PLL feedback ratio
	ms CH A B C           load the MultiSynth divider of an output
	rdiv CH R             set the output post divider
	freq CH HZ [PLL]      plan and apply an output frequency
	dump                  show status, control and all divider blocks
	trace                 show the bus events of the previous command
	help
	quit

Every argument is a starlark expression, so 0x2c, 1<<4 and 14.097*MHz all
work. PLLA, PLLB, MS0, MS1, MS2, kHz and MHz are predeclared.
*/
package shell

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/shlex"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"clockgen/src/plan"
	"clockgen/src/regs"
	"clockgen/src/si5351"
)

var (
	ErrUsage      = errors.New("shell: usage")
	ErrCommand    = errors.New("shell: unknown command")
	ErrExpression = errors.New("shell: bad expression")
	ErrNoTrace    = errors.New("shell: no bus trace available")
)

type command struct {
	args  string
	nargs []int
	run   func(s *Shell, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"read":  {"REG", []int{1}, (*Shell).read},
		"write": {"REG VALUE", []int{2}, (*Shell).write},
		"pll":   {"PLL A B C", []int{4}, (*Shell).pll},
		"ms":    {"CH A B C", []int{4}, (*Shell).ms},
		"rdiv":  {"CH R", []int{2}, (*Shell).rdiv},
		"freq":  {"CH HZ [PLL]", []int{2, 3}, (*Shell).freq},
		"dump":  {"", []int{0}, (*Shell).dump},
		"trace": {"", []int{0}, (*Shell).trace},
		"help":  {"", []int{0}, (*Shell).help},
	}
}

// Shell runs commands against one device.
type Shell struct {
	dev     *si5351.Device
	out     io.Writer
	crystal float64
	drive   si5351.Drive

	// Prompt is written before each line is read.
	Prompt string

	traced []string
	tracer func() []string
	reset  func()
}

func New(dev *si5351.Device, out io.Writer) *Shell {
	return &Shell{
		dev:     dev,
		out:     out,
		crystal: 25e6,
		drive:   si5351.Drive8mA,
	}
}

// SetCrystal sets the reference frequency used by freq.
func (s *Shell) SetCrystal(hz float64) { s.crystal = hz }

// SetDrive sets the drive strength used by freq.
func (s *Shell) SetDrive(d si5351.Drive) { s.drive = d }

// SetTracer lets the trace command show bus events. reset is called before
// each command and trace collects what that command did.
func (s *Shell) SetTracer(trace func() []string, reset func()) {
	s.tracer = trace
	s.reset = reset
}

// Run executes lines from in until it ends or a quit command. Command errors
// are reported on the output and do not stop the loop.
func (s *Shell) Run(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(s.out, s.Prompt)
		if !scanner.Scan() {
			return scanner.Err()
		}
		quit, err := s.Exec(scanner.Text())
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

// Exec runs one command line. quit is true for quit or exit.
func (s *Shell) Exec(line string) (quit bool, err error) {
	words, err := shlex.Split(line)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	if len(words) == 0 {
		return false, nil
	}
	name, args := words[0], words[1:]
	switch name {
	case "quit", "exit":
		return true, nil
	}
	cmd, ok := commands[name]
	if !ok {
		return false, fmt.Errorf("%w: %q", ErrCommand, name)
	}
	if !accepts(cmd.nargs, len(args)) {
		return false, fmt.Errorf("%w: %s %s", ErrUsage, name, cmd.args)
	}
	if name != "trace" && s.tracer != nil {
		s.reset()
		defer func() { s.traced = s.tracer() }()
	}
	return false, cmd.run(s, args)
}

func accepts(nargs []int, n int) bool {
	for _, k := range nargs {
		if k == n {
			return true
		}
	}
	return false
}

func (s *Shell) read(args []string) error {
	reg, err := evalByte(args[0])
	if err != nil {
		return err
	}
	v, err := s.dev.ReadRegister(reg)
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%02x: %02x\n", reg, v)
	return nil
}

func (s *Shell) write(args []string) error {
	reg, err := evalByte(args[0])
	if err != nil {
		return err
	}
	v, err := evalByte(args[1])
	if err != nil {
		return err
	}
	return s.dev.WriteRegister(reg, v)
}

func (s *Shell) pll(args []string) error {
	d, err := evalByte(args[0])
	if err != nil {
		return err
	}
	a, b, c, err := evalRatio(args[1:])
	if err != nil {
		return err
	}
	if si5351.Divider(d) != si5351.PLLA && si5351.Divider(d) != si5351.PLLB {
		return fmt.Errorf("%w: %v", si5351.ErrNotPLL, si5351.Divider(d))
	}
	return s.dev.WriteFractionalDivider(si5351.Divider(d), a, b, c)
}

func (s *Shell) ms(args []string) error {
	div, err := s.multiSynth(args[0])
	if err != nil {
		return err
	}
	a, b, c, err := evalRatio(args[1:])
	if err != nil {
		return err
	}
	return s.dev.WriteFractionalDivider(div, a, b, c)
}

func (s *Shell) rdiv(args []string) error {
	div, err := s.multiSynth(args[0])
	if err != nil {
		return err
	}
	r, err := evalByte(args[1])
	if err != nil {
		return err
	}
	return s.dev.WriteOutputPostDivider(div, r)
}

func (s *Shell) freq(args []string) error {
	ch, err := evalInt(args[0])
	if err != nil {
		return err
	}
	hz, err := evalFloat(args[1])
	if err != nil {
		return err
	}
	pll := si5351.PLLA
	if len(args) == 3 {
		d, err := evalByte(args[2])
		if err != nil {
			return err
		}
		pll = si5351.Divider(d)
	}
	p, err := plan.New(s.crystal, 0, hz)
	if err != nil {
		return err
	}
	if err := s.dev.SetFrequency(int(ch), pll, p, s.drive); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "clk%d: %v\n", ch, p)
	return nil
}

func (s *Shell) dump(args []string) error {
	for _, reg := range []uint8{si5351.DeviceStatus, si5351.OutputEnable, si5351.SpreadSpectrum} {
		v, err := s.dev.ReadRegister(reg)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%02x: %02x\n", reg, v)
	}
	for ch := 0; ch < si5351.Channels; ch++ {
		v, err := s.dev.ReadRegister(si5351.ClkControl0 + uint8(ch))
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "clk%d control: %02x\n", ch, v)
	}
	for _, d := range []si5351.Divider{si5351.PLLA, si5351.PLLB, si5351.MultiSynth0, si5351.MultiSynth1, si5351.MultiSynth2} {
		p, err := s.dev.ReadFractionalDivider(d)
		if err != nil {
			return err
		}
		fmt.Fprintf(s.out, "%-4v p1=%d p2=%d p3=%d ratio=%.6f", d, p.P1, p.P2, p.P3, p.Value())
		if d.Output() {
			r, err := regs.Read(s.dev, si5351.RDiv(d))
			if err != nil {
				return err
			}
			fmt.Fprintf(s.out, " r=%d", si5351.PostDivider(r))
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

func (s *Shell) trace(args []string) error {
	if s.tracer == nil {
		return ErrNoTrace
	}
	for _, line := range s.traced {
		fmt.Fprintln(s.out, line)
	}
	return nil
}

func (s *Shell) help(args []string) error {
	names := []string{"read", "write", "pll", "ms", "rdiv", "freq", "dump", "trace", "help"}
	for _, name := range names {
		fmt.Fprintln(s.out, strings.TrimSpace(name+" "+commands[name].args))
	}
	fmt.Fprintln(s.out, "quit")
	return nil
}

func (s *Shell) multiSynth(arg string) (si5351.Divider, error) {
	v, err := evalInt(arg)
	if err != nil {
		return 0, err
	}
	// either a channel number or one of MS0..MS2
	if d := si5351.Divider(v); v >= 0 && v <= 0xff && d.Output() {
		return d, nil
	}
	return si5351.MultiSynth(int(v))
}

var predeclared = starlark.StringDict{
	"PLLA": starlark.MakeInt(int(si5351.PLLA)),
	"PLLB": starlark.MakeInt(int(si5351.PLLB)),
	"MS0":  starlark.MakeInt(int(si5351.MultiSynth0)),
	"MS1":  starlark.MakeInt(int(si5351.MultiSynth1)),
	"MS2":  starlark.MakeInt(int(si5351.MultiSynth2)),
	"kHz":  starlark.MakeInt(1000),
	"MHz":  starlark.MakeInt(1000000),
}

func eval(expr string) (starlark.Value, error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, predeclared)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrExpression, expr, err)
	}
	rc, ok := dict["rc"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrExpression, expr)
	}
	return rc, nil
}

func evalInt(expr string) (int64, error) {
	rc, err := eval(expr)
	if err != nil {
		return 0, err
	}
	i, ok := rc.(starlark.Int)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not an integer", ErrExpression, expr)
	}
	v, ok := i.Int64()
	if !ok {
		return 0, fmt.Errorf("%w: %s is too big", ErrExpression, expr)
	}
	return v, nil
}

func evalByte(expr string) (uint8, error) {
	v, err := evalInt(expr)
	if err != nil {
		return 0, err
	}
	if v < 0 || v > 0xff {
		return 0, fmt.Errorf("%w: %s = %d is not a byte", ErrExpression, expr, v)
	}
	return uint8(v), nil
}

func evalFloat(expr string) (float64, error) {
	rc, err := eval(expr)
	if err != nil {
		return 0, err
	}
	f, ok := starlark.AsFloat(rc)
	if !ok {
		return 0, fmt.Errorf("%w: %s is not a number", ErrExpression, expr)
	}
	return f, nil
}

func evalRatio(args []string) (a, b, c uint32, err error) {
	var v [3]uint32
	for i, arg := range args {
		x, err := evalInt(arg)
		if err != nil {
			return 0, 0, 0, err
		}
		if x < 0 || x > 0xffff_ffff {
			return 0, 0, 0, fmt.Errorf("%w: %s does not fit 32 bits", ErrExpression, arg)
		}
		v[i] = uint32(x)
	}
	return v[0], v[1], v[2], nil
}
