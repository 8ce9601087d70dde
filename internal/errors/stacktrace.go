package errors

import (
	"fmt"
	"strings"
)

// SourceLocation is a point in a source file.
type SourceLocation struct {
	Line   uint32
	Column uint32
	Offset uint32
}

func (l *SourceLocation) String() string {
	if l == nil {
		return "<unknown>"
	}
	return fmt.Sprintf("line %d, column %d", l.Line, l.Column)
}

// StackFrame is one entry of a runtime stack trace.
type StackFrame struct {
	FunctionName string
	FileName     string // empty when unknown
	Line         uint32
	Column       uint32
	IsNative     bool
}

// NewStackFrame builds a frame for compiled code.
func NewStackFrame(functionName string, line, column uint32) StackFrame {
	return StackFrame{FunctionName: functionName, Line: line, Column: column}
}

// NativeFrame builds a frame for a native function.
func NativeFrame(functionName string) StackFrame {
	return StackFrame{FunctionName: functionName, IsNative: true}
}

// WithFile attaches a file name to the frame.
func (f StackFrame) WithFile(fileName string) StackFrame {
	f.FileName = fileName
	return f
}

func (f StackFrame) String() string {
	name := f.FunctionName
	if name == "" {
		name = "<anonymous>"
	}
	if f.IsNative {
		return fmt.Sprintf("    at %s (native)", name)
	}
	if f.FileName != "" {
		return fmt.Sprintf("    at %s (%s:%d:%d)", name, f.FileName, f.Line, f.Column)
	}
	return fmt.Sprintf("    at %s (%d:%d)", name, f.Line, f.Column)
}

// StackTrace is an ordered list of frames, innermost first.
type StackTrace struct {
	Frames []StackFrame
}

// Push appends a frame.
func (t *StackTrace) Push(frame StackFrame) {
	t.Frames = append(t.Frames, frame)
}

// IsEmpty reports whether any frame has been recorded.
func (t *StackTrace) IsEmpty() bool { return len(t.Frames) == 0 }

func (t StackTrace) String() string {
	var b strings.Builder
	for i, frame := range t.Frames {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(frame.String())
	}
	return b.String()
}
