/*
 * Taleä - Built-in device keyword registrations.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package config

import (
	"fmt"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/device"
	"github.com/rcornwell/taleia/internal/system"
)

func init() {
	RegisterModel("STORAGE", buildStorage)
	RegisterModel("TPS", buildTPS)
	RegisterModel("TTY", buildTTY)
	RegisterModel("TIMER", buildTimer)
}

func levelVector(opts []Option) (uint8, uint8, error) {
	level, _, err := OptionUint(opts, "level", 3)
	if err != nil {
		return 0, 0, err
	}
	vector, _, err := OptionUint(opts, "vector", 8)
	if err != nil {
		return 0, 0, err
	}
	return uint8(level), uint8(vector), nil
}

func buildStorage(sys *system.System, targetBus *bus.Bus, addr uint64, opts []Option) error {
	path, ok := OptionValue(opts, "path")
	if !ok {
		return fmt.Errorf("storage requires path=")
	}
	name, _ := OptionValue(opts, "name")
	if name == "" {
		name = path
	}
	level, vector, err := levelVector(opts)
	if err != nil {
		return err
	}
	d, err := device.NewStorage(name, path, level, vector, sys.ProgramBus)
	if err != nil {
		return err
	}
	targetBus.Insert(addr, d)
	sys.AddDevice(d)
	return nil
}

func buildTPS(sys *system.System, targetBus *bus.Bus, addr uint64, opts []Option) error {
	path, ok := OptionValue(opts, "path")
	if !ok {
		return fmt.Errorf("tps requires path=")
	}
	name, _ := OptionValue(opts, "name")
	if name == "" {
		name = "tps"
	}
	level, vector, err := levelVector(opts)
	if err != nil {
		return err
	}
	d, err := device.NewTPS(name, path, level, vector, sys.ProgramBus)
	if err != nil {
		return err
	}
	targetBus.Insert(addr, d)
	sys.AddDevice(d)
	return nil
}

func buildTTY(sys *system.System, targetBus *bus.Bus, addr uint64, opts []Option) error {
	name, _ := OptionValue(opts, "name")
	if name == "" {
		name = "tty"
	}
	level, vector, err := levelVector(opts)
	if err != nil {
		return err
	}
	d := device.NewTTY(name, level, vector)
	targetBus.Insert(addr, d)
	sys.AddDevice(d)
	return nil
}

func buildTimer(sys *system.System, targetBus *bus.Bus, addr uint64, opts []Option) error {
	name, _ := OptionValue(opts, "name")
	if name == "" {
		name = "timer"
	}
	level, vector, err := levelVector(opts)
	if err != nil {
		return err
	}
	d := device.NewTimer(name, level, vector)
	targetBus.Insert(addr, d)
	sys.AddDevice(d)
	return nil
}
