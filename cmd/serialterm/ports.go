package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	serial "github.com/luhtfiimanal/serialterm"
)

func printPorts(w io.Writer, ports []serial.PortInfo) {
	fmt.Fprintln(w, "--- Available Ports ----")
	for i, p := range ports {
		fmt.Fprintf(w, "---  %d: %s %s\n", i, p.Name, p.Description)
	}
}

// resolvePort finds the port given on the command line, by name or by index.
// A path that exists but was not enumerated (a PTY, a udev symlink) is
// accepted as is.
func resolvePort(ports []serial.PortInfo, name string) (string, int, bool) {
	for i, p := range ports {
		if p.Name == name {
			return p.Name, i, true
		}
	}
	if n, err := strconv.Atoi(name); err == nil && n >= 0 && n < len(ports) {
		return ports[n].Name, n, true
	}
	if _, err := os.Stat(name); err == nil {
		return name, 0, true
	}
	return "", 0, false
}

// prompter asks questions on an interactive terminal before raw mode.
type prompter struct {
	in  *bufio.Reader
	out io.Writer
}

func newPrompter(in io.Reader, out io.Writer) *prompter {
	return &prompter{in: bufio.NewReader(in), out: out}
}

var errNoInput = errors.New("no input")

func (p *prompter) ask(label, def string) (string, error) {
	if def != "" {
		fmt.Fprintf(p.out, "%s [%s]: ", label, def)
	} else {
		fmt.Fprintf(p.out, "%s: ", label)
	}
	line, err := p.in.ReadString('\n')
	line = strings.TrimSpace(line)
	if err != nil && line == "" {
		if errors.Is(err, io.EOF) {
			return "", errNoInput
		}
		return "", err
	}
	if line == "" {
		return def, nil
	}
	return line, nil
}

// intRange asks until the answer is an integer within [lo, hi].
func (p *prompter) intRange(label string, lo, hi int, def *int) (int, error) {
	d := ""
	if def != nil {
		d = strconv.Itoa(*def)
	}
	for {
		answer, err := p.ask(label, d)
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err != nil {
			fmt.Fprintf(p.out, "Error: %q is not a valid integer.\n", answer)
			continue
		}
		if n < lo || n > hi {
			fmt.Fprintf(p.out, "Error: %d is not in the range %d<=x<=%d.\n", n, lo, hi)
			continue
		}
		return n, nil
	}
}

// baudRate asks until the answer is a rate the port can be opened with.
func (p *prompter) baudRate(def *int) (int, error) {
	for {
		n, err := p.intRange("Enter the baudrate", 0, maxBaudRate, def)
		if err != nil {
			return 0, err
		}
		if serial.IsSupportedBaudRate(n) {
			return n, nil
		}
		fmt.Fprintf(p.out, "Error: %d is not a standard baudrate.\n", n)
	}
}

// choice asks until the answer is one of choices, ignoring case.
func (p *prompter) choice(label string, choices []string, def string) (string, error) {
	label = fmt.Sprintf("%s (%s)", label, strings.Join(choices, ", "))
	for {
		answer, err := p.ask(label, def)
		if err != nil {
			return "", err
		}
		for _, c := range choices {
			if strings.EqualFold(c, answer) {
				return c, nil
			}
		}
		fmt.Fprintf(p.out, "Error: %q is not one of %s.\n", answer, strings.Join(choices, ", "))
	}
}

func (p *prompter) confirm(label string, def bool) (bool, error) {
	hint := "y/N"
	if def {
		hint = "Y/n"
	}
	for {
		answer, err := p.ask(fmt.Sprintf("%s [%s]", label, hint), "")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "":
			return def, nil
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(p.out, "Error: invalid input")
	}
}

// pickPort chooses a port interactively. A single port is taken without a
// question. It returns "" when there is nothing to pick.
func (p *prompter) pickPort(ports []serial.PortInfo, def *int) (string, int, error) {
	switch len(ports) {
	case 0:
		fmt.Fprintln(p.out, "--- No serial port available ---")
		return "", 0, nil
	case 1:
		return ports[0].Name, 0, nil
	}
	printPorts(p.out, ports)
	n, err := p.intRange("Enter the number of the port", 0, len(ports)-1, def)
	if err != nil {
		return "", 0, err
	}
	return ports[n].Name, n, nil
}

// confirmSettings shows the connection settings and lets the user change them
// until they are accepted.
func (p *prompter) confirmSettings(cfg *Config, ports []serial.PortInfo, port string, index int) (string, error) {
	for {
		ok, err := p.confirm(fmt.Sprintf("Connecting with %s at %d baudrate, %s parity, %d stopbits.\nDoes this look correct?",
			port, cfg.BaudRate, cfg.Parity, cfg.StopBits), true)
		if err != nil {
			return "", err
		}
		if ok {
			return port, nil
		}

		if port, index, err = p.pickPort(ports, &index); err != nil {
			return "", err
		}
		if cfg.BaudRate, err = p.baudRate(&cfg.BaudRate); err != nil {
			return "", err
		}
		if cfg.Parity, err = p.choice("Enter the parity", parityChoices, cfg.Parity); err != nil {
			return "", err
		}
		if cfg.StopBits, err = p.intRange("Enter the stop bits", 1, 2, &cfg.StopBits); err != nil {
			return "", err
		}
	}
}
