/*
 * Taleä - Main process.
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

package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/taleia/internal/config"
	"github.com/rcornwell/taleia/internal/console"
	"github.com/rcornwell/taleia/internal/logger"
	"github.com/rcornwell/taleia/internal/system"
)

var Logger *slog.Logger

func main() {
	optConfig := getopt.StringLong("config", 'c', "taleia.cfg", "System configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Echo every log record to stderr")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		var err error
		file, err = os.Create(*optLogFile)
		if err != nil {
			slog.Error("could not create log file", "error", err)
			os.Exit(1)
		}
	}
	programLevel := new(slog.LevelVar)
	programLevel.Set(slog.LevelDebug)
	Logger = slog.New(logger.NewHandler(file, &slog.HandlerOptions{Level: programLevel}, *optDebug))
	slog.SetDefault(Logger)

	Logger.Info("taleia started")

	if _, err := os.Stat(*optConfig); os.IsNotExist(err) {
		Logger.Error("configuration file not found", "path", *optConfig)
		os.Exit(1)
	}

	sys := system.New()
	if err := config.Load(*optConfig, sys); err != nil {
		Logger.Error("configuration load failed", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	con := console.New(sys)
	go func() {
		con.Loop()
		close(done)
	}()

	select {
	case <-sigChan:
		Logger.Info("got quit signal")
	case <-done:
		Logger.Info("console exited")
	}

	con.Close()
	for _, d := range sys.Closers() {
		if err := d.Close(); err != nil {
			Logger.Warn("device close failed", "error", err)
		}
	}
	Logger.Info("taleia shutting down")
}
