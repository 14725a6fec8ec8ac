//go:build tinygo && (stm32l0 || stm32l4)

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

import (
	"runtime/volatile"
	"unsafe"
)

// I2C1Base is the address of the first I2Cv2 block on the STM32 L0 and L4 parts.
const I2C1Base = 0x4000_5400

// Register block of an I2Cv2 controller. See RM0377 section 27.7.
//
//goland:noinspection GoSnakeCaseUsage
type i2cHW struct {
	CR1      volatile.Register32
	CR2      volatile.Register32
	OAR1     volatile.Register32
	OAR2     volatile.Register32
	TIMINGR  volatile.Register32
	TIMEOUTR volatile.Register32
	ISR      volatile.Register32
	ICR      volatile.Register32
	PECR     volatile.Register32
	RXDR     volatile.Register32
	TXDR     volatile.Register32
}

//goland:noinspection GoSnakeCaseUsage
const (
	cr2_SADD_Msk   = 0x3ff
	cr2_RD_WRN     = 1 << 10
	cr2_START      = 1 << 13
	cr2_STOP       = 1 << 14
	cr2_NBYTES_Pos = 16
	cr2_NBYTES_Msk = 0xff << cr2_NBYTES_Pos
	cr2_AUTOEND    = 1 << 25
)

/*
STM32 drives an I2Cv2 controller directly through its registers.

Pins, the peripheral clock and TIMINGR must already be set up, which on tinygo
is what machine.I2C0.Configure does. STM32 only touches CR2, ISR, ICR, RXDR
and TXDR.
*/
type STM32 struct {
	hw *i2cHW
}

// NewSTM32 maps the controller at base.
func NewSTM32(base uintptr) STM32 {
	//goland:noinspection GoVetUnsafePointer
	return STM32{hw: (*i2cHW)(unsafe.Pointer(base))}
}

func (s STM32) Setup(f Frame) {
	cr2 := s.hw.CR2.Get()
	cr2 &^= cr2_SADD_Msk | cr2_RD_WRN | cr2_NBYTES_Msk | cr2_AUTOEND
	cr2 |= uint32(f.Target) << 1
	cr2 |= uint32(f.Count) << cr2_NBYTES_Pos & cr2_NBYTES_Msk
	if f.Dir == Read {
		cr2 |= cr2_RD_WRN
	}
	if f.AutoStop {
		cr2 |= cr2_AUTOEND
	}
	s.hw.CR2.Set(cr2)
}

func (s STM32) Start() { s.hw.CR2.SetBits(cr2_START) }

func (s STM32) Stop() { s.hw.CR2.SetBits(cr2_STOP) }

// Status passes ISR through; Status bits share its layout.
func (s STM32) Status() Status { return Status(s.hw.ISR.Get()) }

// Clear writes ICR, whose clear bits line up with the ISR flags they reset.
func (s STM32) Clear(st Status) { s.hw.ICR.Set(uint32(st)) }

func (s STM32) Transmit(b byte) { s.hw.TXDR.Set(uint32(b)) }

func (s STM32) Receive() byte { return byte(s.hw.RXDR.Get()) }
