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

package sim

import (
	"fmt"

	"clockgen/src/twowire"
)

// Address is the default target address of an Si5351.
const Address = 0x60

const deviceStatus = 0x00

// Write records one register store made by the bus master.
type Write struct {
	Reg, Value uint8
}

func (w Write) String() string {
	return fmt.Sprintf("%02x=%02x", w.Reg, w.Value)
}

/*
Controller is a two-wire controller with an Si5351 on the far side of the bus.

It implements twowire.Peripheral. The first byte of every write frame sets the
register pointer and later bytes store with auto-increment; read frames return
registers from the pointer onward. While the chip is still "initializing",
reads of the device status register have SYS_INIT set.

Every call the master makes is kept as a short text trace so tests can check
the exact framing of a transaction:

	write n=2 autostop, start, tx 10, tx 80, stop

A "tc" entry means the master saw the transfer-complete flag.
*/
type Controller struct {
	// Address the chip answers to. A frame for any other address is never
	// acknowledged and no flag ever rises.
	Address uint8
	// Hang freezes every status flag, as a wedged bus would.
	Hang bool

	regs      [256]byte
	ptr       uint8
	frame     twowire.Frame
	present   bool
	pointer   bool // next transmitted byte is the register pointer
	left      int
	rx        byte
	status    twowire.Status
	tcSeen    bool
	initPolls int

	trace  []string
	writes []Write
}

// New returns a controller with a ready chip at Address and all registers zero.
func New() *Controller {
	return &Controller{Address: Address}
}

// SetInitializing makes the next n reads of the device status register report SYS_INIT.
func (c *Controller) SetInitializing(n int) { c.initPolls = n }

// Reg returns the current content of a register without touching the bus.
func (c *Controller) Reg(reg uint8) uint8 { return c.regs[reg] }

// SetReg presets a register without touching the bus.
func (c *Controller) SetReg(reg, v uint8) { c.regs[reg] = v }

// Registers returns a copy of the whole register file.
func (c *Controller) Registers() [256]byte { return c.regs }

// Trace returns the bus events seen since the last Reset.
func (c *Controller) Trace() []string {
	return append([]string(nil), c.trace...)
}

// Writes returns the register stores seen since the last Reset.
func (c *Controller) Writes() []Write {
	return append([]Write(nil), c.writes...)
}

// Reset forgets the trace and the recorded writes. Registers are kept.
func (c *Controller) Reset() {
	c.trace = nil
	c.writes = nil
}

func (c *Controller) Setup(f twowire.Frame) {
	c.frame = f
	s := fmt.Sprintf("%v n=%d", f.Dir, f.Count)
	if f.AutoStop {
		s += " autostop"
	}
	c.record(s)
}

func (c *Controller) Start() {
	c.record("start")
	c.status &^= twowire.TransferComplete | twowire.TxEmpty | twowire.RxNotEmpty
	c.present = c.frame.Target == c.Address
	if !c.present {
		return
	}
	c.left = c.frame.Count
	if c.frame.Dir == twowire.Write {
		c.pointer = true
		c.status |= twowire.TxEmpty
		return
	}
	c.rx = c.load()
	c.status |= twowire.RxNotEmpty
}

func (c *Controller) Stop() {
	c.stop()
}

func (c *Controller) Status() twowire.Status {
	if c.Hang {
		return 0
	}
	if c.status&twowire.TransferComplete != 0 && !c.tcSeen {
		c.tcSeen = true
		c.record("tc")
	}
	return c.status
}

func (c *Controller) Clear(s twowire.Status) {
	c.status &^= s
}

func (c *Controller) Transmit(b byte) {
	c.record(fmt.Sprintf("tx %02x", b))
	if !c.present || c.left == 0 {
		return
	}
	if c.pointer {
		c.ptr = b
		c.pointer = false
	} else {
		c.store(b)
	}
	c.left--
	if c.left > 0 {
		return
	}
	c.status &^= twowire.TxEmpty
	if c.frame.AutoStop {
		c.stop()
	} else {
		c.complete()
	}
}

func (c *Controller) Receive() byte {
	v := c.rx
	c.record(fmt.Sprintf("rx %02x", v))
	c.status &^= twowire.RxNotEmpty
	if !c.present || c.left == 0 {
		return v
	}
	c.left--
	if c.left > 0 {
		c.rx = c.load()
		c.status |= twowire.RxNotEmpty
	} else {
		c.complete()
	}
	return v
}

func (c *Controller) complete() {
	c.status |= twowire.TransferComplete
	c.tcSeen = false
}

func (c *Controller) stop() {
	c.record("stop")
	c.status &^= twowire.TransferComplete | twowire.TxEmpty | twowire.RxNotEmpty
	c.status |= twowire.StopDetected
}

func (c *Controller) load() byte {
	v := c.regs[c.ptr]
	if c.ptr == deviceStatus && c.initPolls > 0 {
		c.initPolls--
		v |= 0x80
	}
	c.ptr++
	return v
}

func (c *Controller) store(v byte) {
	c.regs[c.ptr] = v
	c.writes = append(c.writes, Write{Reg: c.ptr, Value: v})
	c.ptr++
}

func (c *Controller) record(s string) {
	c.trace = append(c.trace, s)
}
