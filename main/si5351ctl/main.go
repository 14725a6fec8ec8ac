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
si5351ctl loads a clock plan into an Si5351 on a Linux i2c adapter.

	si5351ctl [-n] [-shell] [-bus N] [-addr A] [CONFIG.yaml]

With a configuration file the chip is brought up from scratch with the plan it
describes. -shell then (or instead) opens a register console on stdin. -n runs
everything against a simulated chip and prints the registers that were
written, which is a handy way to check a plan before touching hardware.
*/
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/platinasystems/flags"
	"github.com/platinasystems/log"
	"github.com/platinasystems/parms"

	"clockgen/src/config"
	"clockgen/src/regs"
	"clockgen/src/shell"
	"clockgen/src/si5351"
	"clockgen/src/sim"
	"clockgen/src/twowire"
)

const usage = "si5351ctl [-n] [-shell] [-bus N] [-addr A] [CONFIG.yaml]"

// how long a real chip gets to finish its own power-on initialization
const readyTimeout = time.Second

var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

func main() {
	if err := Main(os.Args[1:]...); err != nil {
		fmt.Fprintln(os.Stderr, "si5351ctl:", err)
		os.Exit(1)
	}
}

func Main(args ...string) error {
	flag, args := flags.New(args, "-n", "-shell", "-h", "-help", "--help")
	parm, args := parms.New(args, "-bus", "-addr")
	if flag.ByName["-h"] || flag.ByName["-help"] || flag.ByName["--help"] {
		fmt.Fprintln(stdout, "usage:", usage)
		return nil
	}
	if len(args) > 1 || (len(args) == 0 && !flag.ByName["-shell"]) {
		return errors.New("usage: " + usage)
	}

	cfg := &config.Config{}
	if len(args) == 1 {
		var err error
		if cfg, err = config.Load(args[0]); err != nil {
			return err
		}
	}
	if err := override(cfg, parm.ByName["-bus"], parm.ByName["-addr"]); err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	config.Normalize(cfg)

	var chip *sim.Controller
	var dev *si5351.Device
	if flag.ByName["-n"] {
		chip = sim.New()
		chip.Address = cfg.Bus.Address
		bus := twowire.New(chip, cfg.Bus.Address)
		bus.SetTimeout(cfg.Timeout())
		dev = si5351.New(regs.New(bus))
	} else {
		r, err := open(cfg.Bus.Index, cfg.Bus.Address)
		if err != nil {
			return err
		}
		dev = si5351.New(r)
		dev.SetReadyTimeout(readyTimeout)
	}

	if len(args) == 1 {
		if err := bringup(dev, cfg); err != nil {
			return err
		}
	}

	if flag.ByName["-shell"] {
		sh := shell.New(dev, stdout)
		sh.SetCrystal(cfg.CrystalHz)
		sh.Prompt = "si5351> "
		if chip != nil {
			sh.SetTracer(chip.Trace, chip.Reset)
		}
		return sh.Run(stdin)
	}
	if chip != nil {
		printRegisters(stdout, chip)
	}
	return nil
}

func override(cfg *config.Config, bus, addr string) error {
	if bus != "" {
		n, err := strconv.Atoi(bus)
		if err != nil {
			return fmt.Errorf("-bus %s: %w", bus, err)
		}
		cfg.Bus.Index = n
	}
	if addr != "" {
		a, err := strconv.ParseUint(addr, 0, 7)
		if err != nil {
			return fmt.Errorf("-addr %s: %w", addr, err)
		}
		cfg.Bus.Address = uint8(a)
	}
	return nil
}

func bringup(dev *si5351.Device, cfg *config.Config) error {
	setup, err := config.Setup(cfg)
	if err != nil {
		return err
	}
	for _, p := range setup.PLLs {
		log.Printf("%v: x%v = %.6f MHz", p.PLL, p.Ratio, cfg.CrystalHz*p.Ratio.Float()/1e6)
	}
	for _, o := range setup.Outputs {
		log.Printf("clk%d: %v / %v / %d = %.3f Hz, %d mA",
			o.Channel, o.PLL, o.Ratio, o.R, config.Frequency(cfg.CrystalHz, setup, o), o.Drive.Milliamps())
	}
	if err := dev.Bringup(setup); err != nil {
		return err
	}
	log.Print("si5351: outputs enabled")
	return nil
}

// printRegisters shows the final value of every register that was written.
func printRegisters(w io.Writer, chip *sim.Controller) {
	var written [256]bool
	for _, wr := range chip.Writes() {
		written[wr.Reg] = true
	}
	file := chip.Registers()
	for reg, ok := range written {
		if ok {
			fmt.Fprintf(w, "%02x: %02x\n", reg, file[reg])
		}
	}
}
