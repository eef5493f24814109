package serial

import (
	"fmt"
	"sort"
	"strings"

	"go.bug.st/serial/enumerator"
)

// PortInfo describes a serial port found on the system.
type PortInfo struct {
	Name        string
	Description string
}

// ListPorts returns the serial ports present on the system, sorted by name so
// that indexes stay stable between calls.
func ListPorts() ([]PortInfo, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate ports: %w", err)
	}
	ports := make([]PortInfo, 0, len(details))
	for _, d := range details {
		ports = append(ports, PortInfo{Name: d.Name, Description: describe(d)})
	}
	sort.Slice(ports, func(i, j int) bool { return ports[i].Name < ports[j].Name })
	return ports, nil
}

func describe(d *enumerator.PortDetails) string {
	if !d.IsUSB {
		return "n/a"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "USB VID:PID=%s:%s", strings.ToUpper(d.VID), strings.ToUpper(d.PID))
	if d.SerialNumber != "" {
		b.WriteString(" SER=" + d.SerialNumber)
	}
	if d.Product != "" {
		b.WriteString(" " + d.Product)
	}
	return b.String()
}
