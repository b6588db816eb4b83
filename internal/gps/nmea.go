// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package gps

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	nmea "github.com/adrianmo/go-nmea"
)

// ErrNotRMC is returned by ParseRMC for well-formed sentences of another type.
var ErrNotRMC = errors.New("not an RMC sentence")

// Source is anything that can provide fixes over time: a serial receiver,
// a replay file, the mock circle.
type Source interface {
	Next() (Fix, error)
}

// ParseRMC decodes one NMEA line. Only RMC sentences carry a fix; other
// sentence types return ErrNotRMC.
func ParseRMC(line string) (Fix, error) {
	sentence, err := nmea.Parse(strings.TrimSpace(line))
	if err != nil {
		return Fix{}, err
	}
	if sentence.DataType() != nmea.TypeRMC {
		return Fix{}, fmt.Errorf("%w: %s", ErrNotRMC, sentence.DataType())
	}
	m := sentence.(nmea.RMC)

	return Fix{
		Timestamp:  rmcTime(m.Date, m.Time),
		Latitude:   m.Latitude,
		Longitude:  m.Longitude,
		SpeedKnots: m.Speed,
		CourseDeg:  m.Course,
		Validity:   string(m.Validity),
	}, nil
}

// rmcTime combines the two-digit RMC date with the UTC time. Years below
// 80 are taken as 20xx.
func rmcTime(d nmea.Date, t nmea.Time) time.Time {
	if !d.Valid || !t.Valid {
		return time.Time{}
	}
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD,
		t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}

// Decoder reads NMEA text line by line and yields one Fix per RMC sentence.
// Noise, partial lines and other sentence types are skipped.
type Decoder struct {
	r       *bufio.Reader
	Skipped int // lines that did not produce a fix
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Next returns the next fix, or io.EOF once the reader is exhausted.
func (d *Decoder) Next() (Fix, error) {
	for {
		line, err := d.r.ReadString('\n')
		if line = strings.TrimSpace(line); line != "" {
			// NMEA sentences start with '$' (or '!' for AIS, which we ignore)
			if strings.HasPrefix(line, "$") {
				fix, perr := ParseRMC(line)
				if perr == nil {
					return fix, nil
				}
			}
			d.Skipped++
		}
		if err != nil {
			return Fix{}, err
		}
	}
}
