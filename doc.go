// Package serial provides a minimal, Linux-only serial port designed for
// interactive, unbuffered communication with embedded devices.
//
// Every read is bounded by Config.ReadTimeout so callers can interleave
// device I/O with other work (keyboard polling, liveness checks) without a
// cancellation API. A failure after a successful open is reported as
// ErrDisconnected; operations after Close report ErrClosed.
//
// Features:
//   - Raw syscall-based serial I/O on Linux, no buffering delays
//   - Baud rate, data bits, parity (N/E/O/M/S) and stop bits
//   - Bounded line-oriented and single-byte reads
//   - Self-pipe mechanism for killability
//   - Port discovery with USB details
//   - PTY-based tests for reliability
//
// This package does **not** support Windows.
//
// Example usage:
//
//	port, err := serial.Open(serial.Config{
//	    Device:      "/dev/ttyUSB0",
//	    BaudRate:    115200,
//	    Parity:      serial.ParityNone,
//	    StopBits:    1,
//	    ReadTimeout: 100 * time.Millisecond,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer port.Close()
//
//	if _, err := port.Write([]byte("AT\r\n")); err != nil {
//	    log.Println("Write failed:", err)
//	}
//	line, err := port.ReadLine() // empty if nothing arrived in time
//	if errors.Is(err, serial.ErrDisconnected) {
//	    log.Println("device went away")
//	}
//	fmt.Printf("%q\n", line)
package serial
