// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package collect implements the data-collection link: a device-side
// streamer that writes raw IMU frames on command, and a host-side recorder
// that captures them into labelled sessions.
package collect

import (
	"fmt"
	"io"

	"github.com/jacobsa/go-serial/serial"
)

// Line commands understood by the streamer.
const (
	CmdStart = "START"
	CmdStop  = "STOP"
)

// OpenPort opens a serial port in 8N1 mode.
func OpenPort(name string, baud int) (io.ReadWriteCloser, error) {
	options := serial.OpenOptions{
		PortName:        name,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	port, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("collect: open %s: %w", name, err)
	}
	return port, nil
}
