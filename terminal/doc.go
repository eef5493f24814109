// Package terminal relays a keyboard to a serial device and the device back to
// the screen.
//
// A Session opens the device, starts a KeyReader goroutine that turns raw
// keystrokes into chunks on a Queue, and runs a Relay on the calling goroutine
// that writes the queue to the device and prints what the device sends.
// Shutdown is cooperative: the quit chord (Ctrl+]) or a QuitSignal stops the
// KeyReader, and the Relay stops once the KeyReader is gone or the device
// fails. After a failure the next key decides whether Run asks its caller to
// reconnect.
//
//	quit := &terminal.QuitSignal{}
//	stop := terminal.NotifyQuit(quit, nil)
//	defer stop()
//
//	session := terminal.NewSession(terminal.SessionConfig{
//	    Port:    "/dev/ttyUSB0",
//	    Open:    openDevice,
//	    Input:   terminal.NewTTY(os.Stdin),
//	    Display: terminal.NewDisplay(os.Stdout),
//	    Quit:    quit,
//	})
//	for {
//	    retry, err := session.Run()
//	    if err != nil || !retry {
//	        break
//	    }
//	}
package terminal
