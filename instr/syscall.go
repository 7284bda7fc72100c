package instr

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sarchlab/pipesim/memory"
)

// Machine is the view of the core a special case operates on.
type Machine interface {
	Register(index uint8) uint32
	Memory() memory.Memory
	Output() io.Writer
	Halt(code int32)
}

// Registers used by the system call convention.
const (
	RegService uint8 = 2
	RegArg     uint8 = 4
)

// System call services.
const (
	ServicePrintInt    = 1
	ServicePrintString = 4
	ServiceExit        = 10
	ServicePrintChar   = 11
	ServiceExitCode    = 17
)

const maxStringLen = 1 << 16

// Syscall dispatches on the service number in $2 with the argument in $4.
func Syscall(m Machine) {
	service := m.Register(RegService)
	arg := m.Register(RegArg)

	switch service {
	case ServicePrintInt:
		fmt.Fprintf(m.Output(), "%d", int32(arg))
	case ServicePrintString:
		writeString(m, arg)
	case ServiceExit:
		m.Halt(0)
	case ServicePrintChar:
		fmt.Fprintf(m.Output(), "%c", byte(arg))
	case ServiceExitCode:
		m.Halt(int32(arg))
	default:
		slog.Warn("unknown system call", "Service", service, "Arg", arg)
	}
}

func writeString(m Machine, addr uint32) {
	buf := make([]byte, 0, 64)

	for n := 0; n < maxStringLen; n++ {
		c := memory.Get[uint8](m.Memory(), addr+uint32(n))
		if c == 0 {
			break
		}

		buf = append(buf, c)
	}

	_, err := m.Output().Write(buf)
	if err != nil {
		slog.Warn("system call output failed", "Error", err)
	}
}
