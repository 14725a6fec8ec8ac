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

package config

const (
	DefaultCrystalHz = 25e6
	DefaultAddress   = 0x60
	DefaultDriveMa   = 8
)

// Normalize fills in defaults. Call it only after Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	if cfg.CrystalHz == 0 {
		cfg.CrystalHz = DefaultCrystalHz
	}
	if cfg.Bus.Address == 0 {
		cfg.Bus.Address = DefaultAddress
	}
	for i := range cfg.PLLs {
		if cfg.PLLs[i].Name == "" {
			cfg.PLLs[i].Name = "PLLA"
		}
	}
	for i := range cfg.Outputs {
		o := &cfg.Outputs[i]
		if o.PLL == "" {
			o.PLL = "PLLA"
		}
		if o.DriveMa == 0 {
			o.DriveMa = DefaultDriveMa
		}
		if o.Ratio != nil && o.RDiv == 0 {
			o.RDiv = 1
		}
	}
}
