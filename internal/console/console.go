/*
 * Taleä - Interactive console.
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

// Package console is the liner-backed REPL front end for a running
// System: run/step/break/show/quit commands over the breakpoint debugger
// and the scheduler's run_for loop.
package console

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/peterh/liner"
	"github.com/rcornwell/taleia/internal/system"
)

var commandNames = []string{"run", "step", "break", "clear", "show", "regs", "quit", "help"}

// Console owns the liner session and the System it drives.
type Console struct {
	sys    *system.System
	line   *liner.State
	prompt string
}

// New builds a Console over sys.
func New(sys *system.System) *Console {
	l := liner.NewLiner()
	l.SetCtrlCAborts(true)
	l.SetCompleter(func(partial string) []string {
		var out []string
		for _, name := range commandNames {
			if strings.HasPrefix(name, partial) {
				out = append(out, name)
			}
		}
		return out
	})
	return &Console{sys: sys, line: l, prompt: "taleia> "}
}

// Close releases the terminal.
func (c *Console) Close() { c.line.Close() }

// Loop reads commands until quit or an aborted prompt (Ctrl-D/Ctrl-C).
func (c *Console) Loop() {
	for {
		input, err := c.line.Prompt(c.prompt)
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			slog.Error("console read failed", "error", err)
			return
		}
		c.line.AppendHistory(input)
		quit, err := c.Dispatch(input)
		if err != nil {
			fmt.Println("error: " + err.Error())
		}
		if quit {
			return
		}
	}
}

// Dispatch executes one command line; it is exported separately from
// Loop so tests and scripted input can drive it without a real terminal.
func (c *Console) Dispatch(input string) (quit bool, err error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false, nil
	}

	switch strings.ToLower(fields[0]) {
	case "quit", "exit":
		return true, nil

	case "run":
		ns, ferr := parseDuration(fields[1:], 1_000_000)
		if ferr != nil {
			return false, ferr
		}
		return false, c.sys.RunFor(ns)

	case "step":
		_, serr := c.sys.CPU.Step()
		return false, serr

	case "break":
		if len(fields) != 2 {
			return false, errors.New("usage: break <addr>")
		}
		addr, perr := parseUint32(fields[1])
		if perr != nil {
			return false, perr
		}
		c.sys.CPU.Debugger.Add(addr)
		return false, nil

	case "clear":
		if len(fields) != 2 {
			return false, errors.New("usage: clear <addr>")
		}
		addr, perr := parseUint32(fields[1])
		if perr != nil {
			return false, perr
		}
		c.sys.CPU.Debugger.Remove(addr)
		return false, nil

	case "regs":
		fmt.Print(c.sys.CPU.DumpState())
		return false, nil

	case "show":
		fmt.Printf("clock=%dns debug_enabled=%v\n", c.sys.Clock(), c.sys.DebugEnabled)
		return false, nil

	case "help":
		fmt.Println(strings.Join(commandNames, " "))
		return false, nil

	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
}

func parseUint32(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), hexOrDec(s), 32)
	if err != nil {
		return 0, err
	}
	return uint32(v), nil
}

func hexOrDec(s string) int {
	if strings.HasPrefix(s, "0x") {
		return 16
	}
	return 10
}

func parseDuration(fields []string, fallback uint64) (uint64, error) {
	if len(fields) == 0 {
		return fallback, nil
	}
	v, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", fields[0], err)
	}
	return v, nil
}
