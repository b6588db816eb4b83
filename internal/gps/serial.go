// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"fmt"
	"io"

	serial "github.com/jacobsa/go-serial/serial"
)

// SerialSource is a Decoder over an open GPS UART.
type SerialSource struct {
	*Decoder
	port io.ReadWriteCloser
}

// OpenSerial opens the GPS serial port (8N1). Typical ports are
// /dev/serial0, /dev/ttyAMA0 or /dev/ttyUSB0.
func OpenSerial(portName string, baud uint) (*SerialSource, error) {
	opts := serial.OpenOptions{
		PortName:              portName,
		BaudRate:              baud,
		DataBits:              8,
		StopBits:              1,
		MinimumReadSize:       1,
		ParityMode:            serial.PARITY_NONE,
		InterCharacterTimeout: 0,
	}
	port, err := serial.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open GPS serial %s: %w", portName, err)
	}
	return &SerialSource{Decoder: NewDecoder(port), port: port}, nil
}

func (s *SerialSource) Close() error {
	return s.port.Close()
}
