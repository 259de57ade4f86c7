// Reads and writes the plain-text request script:
//
//	R W D
//	N cap timeout
//	<user> <file> <READ|WRITE|DELETE> <t>
//	...
//	STOP
//
// Files are numbered from 1. Blank lines and lines starting with '#' are ignored.

package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lazy-sim/lazy-sim/sim"
)

const stopKeyword = "STOP"

// ParseScript reads a text script. The returned scenario starts from
// sim.DefaultConfig, so Tick and Stagger keep their defaults.
// A script that ends without STOP is accepted with a warning.
func ParseScript(r io.Reader) (*Scenario, error) {
	s := &Scenario{Config: sim.DefaultConfig()}
	scanner := bufio.NewScanner(r)
	lineNo := 0
	header := 0
	stopped := false

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)

		switch header {
		case 0:
			vals, err := parseInts(fields, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: durations header %q: %w", lineNo, line, err)
			}
			s.Config.ReadDuration, s.Config.WriteDuration, s.Config.DeleteDuration = vals[0], vals[1], vals[2]
			header++
			continue
		case 1:
			vals, err := parseInts(fields, 3)
			if err != nil {
				return nil, fmt.Errorf("line %d: limits header %q: %w", lineNo, line, err)
			}
			s.Config.ResourceCount = int(vals[0])
			s.Config.MaxConcurrentUsers = int(vals[1])
			s.Config.WaitTimeout = vals[2]
			header++
			continue
		}

		if strings.EqualFold(fields[0], stopKeyword) {
			stopped = true
			break
		}
		req, err := parseRequestLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		s.Requests = append(s.Requests, req)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	if header < 2 {
		return nil, fmt.Errorf("script ended after %d of 2 header lines", header)
	}
	if !stopped {
		logrus.Warnf("script has no %s line; using all %d request(s) read", stopKeyword, len(s.Requests))
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func parseRequestLine(fields []string) (RequestSpec, error) {
	if len(fields) != 4 {
		return RequestSpec{}, fmt.Errorf("want \"<user> <file> <op> <time>\", got %d field(s)", len(fields))
	}
	user, err := strconv.Atoi(fields[0])
	if err != nil {
		return RequestSpec{}, fmt.Errorf("user id %q: %w", fields[0], err)
	}
	file, err := strconv.Atoi(fields[1])
	if err != nil {
		return RequestSpec{}, fmt.Errorf("file id %q: %w", fields[1], err)
	}
	op, err := sim.ParseOperation(fields[2])
	if err != nil {
		return RequestSpec{}, err
	}
	at, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return RequestSpec{}, fmt.Errorf("arrival time %q: %w", fields[3], err)
	}
	if at < 0 {
		return RequestSpec{}, fmt.Errorf("arrival time %d is negative", at)
	}
	return RequestSpec{User: user, File: file, Op: op, At: at}, nil
}

func parseInts(fields []string, n int) ([]int64, error) {
	if len(fields) != n {
		return nil, fmt.Errorf("want %d integers, got %d field(s)", n, len(fields))
	}
	out := make([]int64, n)
	for i, f := range fields {
		v, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// WriteScript writes s in text script form, terminated by STOP.
// Tick and Stagger have no script representation and are dropped.
func WriteScript(w io.Writer, s *Scenario) error {
	bw := bufio.NewWriter(w)
	c := s.Config
	fmt.Fprintf(bw, "%d %d %d\n", c.ReadDuration, c.WriteDuration, c.DeleteDuration)
	fmt.Fprintf(bw, "%d %d %d\n", c.ResourceCount, c.MaxConcurrentUsers, c.WaitTimeout)
	for _, r := range s.Requests {
		fmt.Fprintf(bw, "%d %d %s %d\n", r.User, r.File, r.Op, r.At)
	}
	fmt.Fprintln(bw, stopKeyword)
	return bw.Flush()
}
