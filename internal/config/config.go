/*
 * Taleä - Text configuration parser.
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

// Package config loads a text system description into a *system.System.
// Device keywords register themselves through RegisterModel at init
// time, the same registry-of-builders shape the teacher's configparser
// uses, trimmed to this project's simpler line grammar:
//
//	# comment
//	<KEYWORD> <bus> <address> key=value key=value ...
//
// <bus> is "program" or "data"; <address> is decimal or 0x-prefixed hex.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rcornwell/taleia/internal/bus"
	"github.com/rcornwell/taleia/internal/system"
)

// Option is one key=value pair off a configuration line.
type Option struct {
	Key   string
	Value string
}

// Builder constructs and registers a device against sys at addr on the
// named bus, using the line's trailing options.
type Builder func(sys *system.System, targetBus *bus.Bus, addr uint64, opts []Option) error

var builders = map[string]Builder{}

// RegisterModel adds a device keyword to the registry. The built-in
// keywords are registered from this package's init function in devices.go.
func RegisterModel(keyword string, b Builder) {
	builders[strings.ToUpper(keyword)] = b
}

// Load reads a configuration file and applies each line against sys.
func Load(path string, sys *system.System) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	lineNum := 0
	for {
		raw, err := reader.ReadString('\n')
		lineNum++
		if len(raw) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		if perr := parseLine(raw, sys); perr != nil {
			return fmt.Errorf("line %d: %w", lineNum, perr)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func parseLine(raw string, sys *system.System) error {
	line := raw
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		line = line[:idx]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	keyword := strings.ToUpper(fields[0])
	builder, ok := builders[keyword]
	if !ok {
		return fmt.Errorf("unknown device keyword %q", fields[0])
	}
	if len(fields) < 3 {
		return fmt.Errorf("%s requires a bus and an address", keyword)
	}

	targetBus, err := resolveBus(fields[1], sys)
	if err != nil {
		return err
	}
	addr, err := parseAddress(fields[2])
	if err != nil {
		return err
	}

	opts := make([]Option, 0, len(fields)-3)
	for _, f := range fields[3:] {
		k, v, found := strings.Cut(f, "=")
		if !found {
			return fmt.Errorf("malformed option %q (want key=value)", f)
		}
		opts = append(opts, Option{Key: k, Value: v})
	}

	return builder(sys, targetBus, addr, opts)
}

func resolveBus(name string, sys *system.System) (*bus.Bus, error) {
	switch strings.ToLower(name) {
	case "program":
		return sys.ProgramBus, nil
	case "data":
		return sys.DataBus, nil
	default:
		return nil, fmt.Errorf("unknown bus %q, want program or data", name)
	}
}

func parseAddress(s string) (uint64, error) {
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return strconv.ParseUint(s[2:], 16, 64)
	}
	return strconv.ParseUint(s, 10, 64)
}

// OptionValue looks up key in opts, returning ok=false when absent.
func OptionValue(opts []Option, key string) (string, bool) {
	for _, o := range opts {
		if strings.EqualFold(o.Key, key) {
			return o.Value, true
		}
	}
	return "", false
}

// OptionUint parses a decimal or 0x-prefixed option value as an integer
// of the given bit width.
func OptionUint(opts []Option, key string, bitSize int) (uint64, bool, error) {
	v, ok := OptionValue(opts, key)
	if !ok {
		return 0, false, nil
	}
	n, err := parseAddress(v)
	if err != nil {
		return 0, false, fmt.Errorf("option %s: %w", key, err)
	}
	if bitSize < 64 && n >= 1<<uint(bitSize) {
		return 0, false, fmt.Errorf("option %s: value 0x%x overflows %d bits", key, n, bitSize)
	}
	return n, true, nil
}
