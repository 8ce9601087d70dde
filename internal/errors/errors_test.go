package errors

import (
	"strings"
	"testing"
)

func TestRuntimeErrorMessages(t *testing.T) {
	err := NotDefined("x")
	if got := err.Error(); got != "ReferenceError: 'x' is not defined" {
		t.Errorf("message: %q", got)
	}

	err = CannotReadProperty("y", "undefined")
	if got := err.Error(); got != "TypeError: Cannot read property 'y' of undefined" {
		t.Errorf("message: %q", got)
	}
}

func TestStackTraceRendering(t *testing.T) {
	var trace StackTrace
	trace.Push(NewStackFrame("inner", 3, 5).WithFile("app.js"))
	trace.Push(NativeFrame("print"))

	err := NewTypeError("boom").WithStack(trace)
	msg := err.Error()
	if !strings.Contains(msg, "at inner (app.js:3:5)") {
		t.Errorf("missing compiled frame:\n%s", msg)
	}
	if !strings.Contains(msg, "at print (native)") {
		t.Errorf("missing native frame:\n%s", msg)
	}
}

func TestResourceLimitNotCatchable(t *testing.T) {
	err := OperationLimitExceeded(1000001, 1000000)
	if err.Catchable() {
		t.Error("resource-limit errors must bypass try/catch")
	}
	if !strings.Contains(err.Error(), "ResourceLimitError: OperationLimit") {
		t.Errorf("message: %q", err.Error())
	}

	if !NewTypeError("x").Catchable() {
		t.Error("runtime errors are catchable")
	}
}

func TestParseErrorWithSourceContext(t *testing.T) {
	src := "let a = 1;\nlet b = ;\nlet c = 3;"
	err := NewParseError("unexpected token", SourceLocation{Line: 2, Column: 9}).
		WithSourceContext(src)

	msg := err.Error()
	if !strings.Contains(msg, "SyntaxError: unexpected token at line 2, column 9") {
		t.Errorf("header: %q", msg)
	}
	if !strings.Contains(msg, "> 2 | let b = ;") {
		t.Errorf("marked line missing:\n%s", msg)
	}
	if !strings.Contains(msg, "^") {
		t.Errorf("caret missing:\n%s", msg)
	}
	if !strings.Contains(msg, "1 | let a = 1;") || !strings.Contains(msg, "3 | let c = 3;") {
		t.Errorf("context lines missing:\n%s", msg)
	}
}

func TestFormatSourceContextBounds(t *testing.T) {
	if got := FormatSourceContext("only line", SourceLocation{Line: 5, Column: 1}); got != "" {
		t.Errorf("out-of-range location should render nothing, got %q", got)
	}
}
