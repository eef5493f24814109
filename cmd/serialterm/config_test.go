package main

import (
	"io"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	serial "github.com/luhtfiimanal/serialterm"
)

func TestParseFlags_Defaults(t *testing.T) {
	cfg, err := parseFlags(nil, io.Discard)
	require.NoError(t, err)
	require.Equal(t, Config{BaudRate: 115200, Parity: "N", StopBits: 1}, cfg)
}

func TestParseFlags_All(t *testing.T) {
	cfg, err := parseFlags([]string{
		"-p", "/dev/ttyUSB1", "-b", "9600", "--parity", "e", "--stopbits", "2",
		"-l", "--script", "--debug", "--log-file", "/tmp/serialterm.log",
	}, io.Discard)
	require.NoError(t, err)
	require.Equal(t, Config{
		Port:     "/dev/ttyUSB1",
		BaudRate: 9600,
		Parity:   "E",
		StopBits: 2,
		Loopback: true,
		Script:   true,
		Debug:    true,
		LogFile:  "/tmp/serialterm.log",
	}, cfg)

	require.Equal(t, serial.Config{
		Device:      "/dev/ttyUSB1",
		BaudRate:    9600,
		DataBits:    8,
		Parity:      serial.ParityEven,
		StopBits:    2,
		ReadTimeout: 100 * time.Millisecond,
	}, cfg.serialConfig("/dev/ttyUSB1"))
}

func TestParseFlags_Invalid(t *testing.T) {
	for _, args := range [][]string{
		{"-b", "230400"},
		{"-b", "-1"},
		{"-b", "0"},
		{"-b", "74880"},
		{"--stopbits", "0"},
		{"--stopbits", "3"},
		{"--parity", "X"},
		{"extra"},
		{"--nope"},
	} {
		_, err := parseFlags(args, io.Discard)
		require.Error(t, err, "args %v", args)
	}
}

func TestParseFlags_BaudMatchesOpen(t *testing.T) {
	for _, baud := range []string{"300", "9600", "57600", "115200"} {
		cfg, err := parseFlags([]string{"-b", baud}, io.Discard)
		require.NoError(t, err, "baud %s", baud)
		require.True(t, serial.IsSupportedBaudRate(cfg.BaudRate))
	}

	_, err := parseFlags([]string{"-b", "74880"}, io.Discard)
	require.ErrorContains(t, err, "not a standard rate")
}

func TestParseFlags_Help(t *testing.T) {
	_, err := parseFlags([]string{"-h"}, io.Discard)
	require.ErrorIs(t, err, pflag.ErrHelp)
}
