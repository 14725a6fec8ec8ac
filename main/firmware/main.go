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

package main

import (
	"fmt"
	"machine"
	"time"

	tinysi "github.com/chiefMarlin/tinygo-drivers/si5351"

	"clockgen/src/plan"
	"clockgen/src/regs"
	"clockgen/src/si5351"
	"clockgen/src/twowire"
)

const (
	crystal = 25e6
	vco     = 650e6
	output  = 300e3
)

func main() {
	time.Sleep(1000 * time.Millisecond)
	dev := setupClock()

	ms, err := si5351.MultiSynth(0)
	if err != nil {
		panic(err)
	}
	ticker := time.NewTicker(2 * time.Second)
	for range ticker.C {
		status, err := dev.ReadRegister(si5351.DeviceStatus)
		if err != nil {
			fmt.Printf("status read failed: %s\n", err)
			continue
		}
		p, err := dev.ReadFractionalDivider(ms)
		if err != nil {
			fmt.Printf("divider read failed: %s\n", err)
			continue
		}
		fmt.Printf("status = %02x, MS0 = %.6f\n", status, p.Value())
	}
}

func setupClock() *si5351.Device {
	// Pins, peripheral clock and bus timing
	err := machine.I2C0.Configure(machine.I2CConfig{})
	if err != nil {
		panic("Failed to configure I2C0")
	}

	bus := twowire.New(twowire.NewSTM32(twowire.I2C1Base), si5351.Address)
	bus.SetTimeout(50 * time.Millisecond)

	// Verify device wired properly
	probe := tinysi.New(bus)
	connected, err := probe.Connected()
	if err != nil {
		panic("Unable to read device status")
	}
	if !connected {
		panic("Unable to connect to SI5351 device")
	}
	err = probe.Configure()
	if err != nil {
		panic("Unable to configure device")
	}

	dev := si5351.New(regs.New(bus))
	dev.SetReadyTimeout(time.Second)
	if err := dev.WaitReady(); err != nil {
		panic(err)
	}
	if err := dev.DisableSpreadSpectrum(); err != nil {
		panic(err)
	}

	// 25MHz * 26 = 650MHz, / (1083 + 1/3) / 2 = 300kHz
	p, err := plan.New(crystal, vco, output)
	if err != nil {
		panic(fmt.Errorf("unable to plan output: %v", err))
	}
	fmt.Printf("PLL A frequency: %.1f MHz\n", p.PLLFreq/1e6)

	err = dev.SetFrequency(0, si5351.PLLA, p, si5351.Drive4mA)
	if err != nil {
		panic(fmt.Errorf("unable to configure output %v", err))
	}
	fmt.Printf("Clock 0: %.3f kHz\n", p.Freq/1e3)
	return dev
}
