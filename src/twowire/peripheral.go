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

package twowire

import "strings"

// Direction of the data phase of a frame.
type Direction uint8

const (
	Write Direction = iota
	Read
)

func (d Direction) String() string {
	if d == Read {
		return "read"
	}
	return "write"
}

// Status holds the flags reported by a bus controller. The bit positions are
// those of the ISR register of the STM32 I2Cv2 block so the hardware adapter
// can pass the register through untouched.
type Status uint32

const (
	TxEmpty          Status = 1 << 0
	RxNotEmpty       Status = 1 << 2
	Nack             Status = 1 << 4
	StopDetected     Status = 1 << 5
	TransferComplete Status = 1 << 6
)

var statusNames = []struct {
	s    Status
	name string
}{
	{TxEmpty, "TXE"},
	{RxNotEmpty, "RXNE"},
	{Nack, "NACKF"},
	{StopDetected, "STOPF"},
	{TransferComplete, "TC"},
}

func (s Status) String() string {
	var names []string
	for _, n := range statusNames {
		if s&n.s != 0 {
			names = append(names, n.name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "|")
}

// Frame describes the next transfer a controller should perform once started.
type Frame struct {
	Target   uint8 // 7-bit target address
	Dir      Direction
	Count    int
	AutoStop bool // generate a stop condition after Count bytes
}

/*
Peripheral is the control and status block of a two-wire bus controller.

A Bus never touches hardware directly. Everything it knows about the state of
a transfer comes from polling Status, so a test double (or a real register
block) can be dropped in without changing the protocol logic.
*/
type Peripheral interface {
	// Setup programs target, direction, byte count and auto-stop for the next Start.
	Setup(f Frame)
	// Start issues a start (or repeated start) condition.
	Start()
	// Stop issues a stop condition.
	Stop()
	Status() Status
	// Clear acknowledges the given sticky flags.
	Clear(s Status)
	Transmit(b byte)
	Receive() byte
}
