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
Package config reads a clock plan for an Si5351 from YAML.

	crystal_hz: 25000000
	bus:
	  index: 1
	  address: 0x60
	  timeout_ms: 50
	plls:
	  - name: PLLB
	    ratio: {a: 36, b: 0, c: 1}
	outputs:
	  - channel: 0
	    pll: PLLA
	    frequency_hz: 300000
	    pll_hz: 650000000
	    drive_ma: 4
	  - channel: 1
	    pll: PLLB
	    ratio: {a: 45, b: 0, c: 1}
	    r_div: 4

An output is given either as a frequency, in which case the dividers are
planned, or as an explicit MultiSynth ratio and R divider. Use Load, then
Validate, then Normalize, then Setup.
*/
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	CrystalHz float64        `yaml:"crystal_hz"`
	Bus       BusConfig      `yaml:"bus"`
	PLLs      []PLLConfig    `yaml:"plls"`
	Outputs   []OutputConfig `yaml:"outputs"`
}

// ---- BUS ----

type BusConfig struct {
	Index     int   `yaml:"index"`      // N in /dev/i2c-N
	Address   uint8 `yaml:"address"`    // 7-bit
	TimeoutMs int   `yaml:"timeout_ms"` // 0 waits forever
}

// ---- DIVIDERS ----

type RatioConfig struct {
	A uint32 `yaml:"a"`
	B uint32 `yaml:"b"`
	C uint32 `yaml:"c"`
}

type PLLConfig struct {
	Name  string      `yaml:"name"` // PLLA or PLLB
	Ratio RatioConfig `yaml:"ratio"`
}

// ---- OUTPUTS ----

type OutputConfig struct {
	Channel int    `yaml:"channel"`
	PLL     string `yaml:"pll"`

	// planned
	FrequencyHz float64 `yaml:"frequency_hz"`
	PLLHz       float64 `yaml:"pll_hz"` // optional

	// explicit
	Ratio *RatioConfig `yaml:"ratio"`
	RDiv  uint8        `yaml:"r_div"`

	DriveMa int `yaml:"drive_ma"`
}

// Load reads and decodes a YAML file. Unknown keys are an error.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Parse(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
