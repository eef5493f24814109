package main

import (
	"fmt"
	"io"

	"github.com/spf13/pflag"

	serial "github.com/luhtfiimanal/serialterm"
)

const maxBaudRate = 115200

var parityChoices = []string{"N", "E", "O", "S", "M"}

// Config holds the command line settings.
type Config struct {
	Port      string
	BaudRate  int
	Parity    string
	StopBits  int
	Loopback  bool
	Script    bool
	Enumerate bool
	Debug     bool
	LogFile   string
}

func parseFlags(args []string, stderr io.Writer) (Config, error) {
	var cfg Config
	fs := pflag.NewFlagSet("serialterm", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVarP(&cfg.Port, "port", "p", "", "serial port name or index from --enumerate")
	fs.IntVarP(&cfg.BaudRate, "baudrate", "b", maxBaudRate, "baud rate")
	fs.StringVar(&cfg.Parity, "parity", "N", "parity: N, E, O, S or M")
	fs.IntVar(&cfg.StopBits, "stopbits", 1, "stop bits: 1 or 2")
	fs.BoolVarP(&cfg.Loopback, "loopback", "l", false, "loopback mode: echo everything the device sends back to it")
	fs.BoolVar(&cfg.Script, "script", false, "script mode: no prompts, exit if no port was given")
	fs.BoolVarP(&cfg.Enumerate, "enumerate", "e", false, "list available ports and exit")
	fs.BoolVar(&cfg.Debug, "debug", false, "log debug messages")
	fs.StringVar(&cfg.LogFile, "log-file", "", "write logs to this file instead of stderr")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: serialterm [flags]\n\nInteractive terminal for a serial port. Press Ctrl+] to quit.\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		return cfg, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.BaudRate < 0 || c.BaudRate > maxBaudRate {
		return fmt.Errorf("--baudrate %d is not in the range 0<=x<=%d", c.BaudRate, maxBaudRate)
	}
	if !serial.IsSupportedBaudRate(c.BaudRate) {
		return fmt.Errorf("--baudrate %d is not a standard rate", c.BaudRate)
	}
	if c.StopBits < 1 || c.StopBits > 2 {
		return fmt.Errorf("--stopbits %d is not in the range 1<=x<=2", c.StopBits)
	}
	parity, err := serial.ParseParity(c.Parity)
	if err != nil {
		return fmt.Errorf("--parity: %w", err)
	}
	c.Parity = parity.String()
	return nil
}

// serialConfig builds the device settings for the chosen port.
func (c Config) serialConfig(port string) serial.Config {
	parity, _ := serial.ParseParity(c.Parity)
	return serial.Config{
		Device:      port,
		BaudRate:    c.BaudRate,
		DataBits:    8,
		Parity:      parity,
		StopBits:    c.StopBits,
		ReadTimeout: serial.DefaultReadTimeout,
	}
}
