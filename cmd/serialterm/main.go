// Command serialterm is an interactive terminal for a serial port.
//
// Keys are sent to the device as they are typed and whatever the device sends
// is printed. Ctrl+] quits, as does SIGQUIT (CTRL+\ from another terminal).
// When the device goes away, pressing R reconnects with the same settings.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	serial "github.com/luhtfiimanal/serialterm"
	"github.com/luhtfiimanal/serialterm/terminal"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin *os.File, stdout, stderr io.Writer) int {
	cfg, err := parseFlags(args, stderr)
	if errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return 2
	}

	logger, closeLog, err := newLogger(cfg, stderr)
	if err != nil {
		fmt.Fprintln(stderr, "Error: open log file:", err)
		return 1
	}
	defer closeLog()
	log := logrus.NewEntry(logger)

	ports, err := serial.ListPorts()
	if err != nil {
		log.WithError(err).Warn("listing serial ports")
	}

	if cfg.Enumerate {
		printPorts(stdout, ports)
		return 0
	}

	port, err := choosePort(&cfg, ports, stdin, stdout)
	if err != nil {
		log.WithError(err).Error("choosing serial port")
		return 1
	}
	if port == "" {
		if cfg.Port != "" {
			fmt.Fprintf(stdout, "--- %s is not an available port ---\n", cfg.Port)
			return 1
		}
		return 0
	}

	display := terminal.NewDisplay(stdout)
	quit := &terminal.QuitSignal{}
	stop := terminal.NotifyQuit(quit, func() {
		display.Linef("%s detected!", terminal.QuitSignalName)
	})
	defer stop()

	serialCfg := cfg.serialConfig(port)
	session := terminal.NewSession(terminal.SessionConfig{
		Port: port,
		Open: func() (terminal.Device, error) {
			p, err := serial.Open(serialCfg)
			if err != nil {
				return nil, err
			}
			return p, nil
		},
		Input:    terminal.NewTTY(stdin),
		Display:  display,
		Quit:     quit,
		Loopback: cfg.Loopback,
		Log:      log.WithField("port", port),
	})

	for {
		retry, err := session.Run()
		if err != nil {
			log.WithError(err).Error("session ended")
			return 1
		}
		if !retry {
			return 0
		}
	}
}

// choosePort resolves the port from flags or, outside script mode, by asking.
// It returns "" when there is nothing to connect to.
func choosePort(cfg *Config, ports []serial.PortInfo, stdin io.Reader, stdout io.Writer) (string, error) {
	p := newPrompter(stdin, stdout)

	var (
		port  string
		index int
		err   error
	)
	if cfg.Port == "" {
		if cfg.Script {
			return "", nil
		}
		if port, index, err = p.pickPort(ports, nil); err != nil {
			return "", err
		}
	} else {
		var ok bool
		if port, index, ok = resolvePort(ports, cfg.Port); !ok {
			return "", nil
		}
	}

	if cfg.Script || port == "" {
		return port, nil
	}
	return p.confirmSettings(cfg, ports, port, index)
}
