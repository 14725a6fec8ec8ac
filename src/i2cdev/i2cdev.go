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

// Package i2cdev gives register access to a device behind a Linux i2c-dev
// adapter. SMBus byte-data transfers are exactly the single register frames
// the chip expects: pointer then data for a write, pointer then a repeated
// start and one byte for a read.
package i2cdev

import (
	"fmt"

	"github.com/platinasystems/i2c"

	"clockgen/src/regs"
)

var _ regs.Registers = (*Device)(nil)

// Device is the target at BusAddress on /dev/i2c-BusIndex. The adapter is
// opened for each access and closed again so nothing is held between calls.
type Device struct {
	BusIndex   int
	BusAddress int
}

func New(index int, address uint8) *Device {
	return &Device{BusIndex: index, BusAddress: int(address)}
}

func (d *Device) i2cDo(rw i2c.RW, reg uint8, size i2c.SMBusSize, data *i2c.SMBusData) (err error) {
	var bus i2c.Bus

	err = bus.Open(d.BusIndex)
	if err != nil {
		return
	}
	defer bus.Close()

	err = bus.ForceSlaveAddress(d.BusAddress)
	if err != nil {
		return
	}

	err = bus.Do(rw, reg, size, data)
	return
}

func (d *Device) ReadRegister(reg uint8) (uint8, error) {
	var data i2c.SMBusData
	if err := d.i2cDo(i2c.Read, reg, i2c.ByteData, &data); err != nil {
		return 0, fmt.Errorf("%v: read %02x: %w", d, reg, err)
	}
	return data[0], nil
}

func (d *Device) WriteRegister(reg, value uint8) error {
	var data i2c.SMBusData
	data[0] = value
	if err := d.i2cDo(i2c.Write, reg, i2c.ByteData, &data); err != nil {
		return fmt.Errorf("%v: write %02x: %w", d, reg, err)
	}
	return nil
}

func (d *Device) String() string {
	return fmt.Sprintf("i2c-%d@%#02x", d.BusIndex, d.BusAddress)
}
