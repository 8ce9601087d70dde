package vm

import (
	"math"
	"testing"
)

func TestParseNumberGrammar(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"", 0},
		{"   ", 0},
		{"42", 42},
		{"  42  ", 42},
		{"-3.5", -3.5},
		{"+7", 7},
		{"1e3", 1000},
		{"1.5e-2", 0.015},
		{"0x10", 16},
		{"0b101", 5},
		{"0o17", 15},
		{"Infinity", math.Inf(1)},
		{"-Infinity", math.Inf(-1)},
	}
	for _, tc := range cases {
		if got := ParseNumber(tc.in); got != tc.want {
			t.Errorf("ParseNumber(%q): got %v, want %v", tc.in, got, tc.want)
		}
	}

	for _, bad := range []string{"abc", "12px", "0xZZ", "-0x10", "1 2"} {
		if got := ParseNumber(bad); !math.IsNaN(got) {
			t.Errorf("ParseNumber(%q): got %v, want NaN", bad, got)
		}
	}
}

func TestToNumberCoercions(t *testing.T) {
	if !math.IsNaN(ToNumber(UndefinedVal())) {
		t.Error("undefined -> NaN")
	}
	if ToNumber(NullVal()) != 0 {
		t.Error("null -> 0")
	}
	if ToNumber(BoolVal(true)) != 1 || ToNumber(BoolVal(false)) != 0 {
		t.Error("boolean coercion")
	}
	if ToNumber(StringVal("  12 ")) != 12 {
		t.Error("string coercion trims whitespace")
	}
}

func TestNumberToString(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{math.Copysign(0, -1), "0"}, // -0 stringifies to "0"
		{1, "1"},
		{-1.5, "-1.5"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
		{1e21, "1e+21"},
		{1e-7, "1e-7"},
		{0.000001, "0.000001"},
		{123456789, "123456789"},
	}
	for _, tc := range cases {
		if got := NumberToString(tc.in); got != tc.want {
			t.Errorf("NumberToString(%v): got %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestToStringValues(t *testing.T) {
	if ToString(UndefinedVal()) != "undefined" || ToString(NullVal()) != "null" {
		t.Error("nullish string forms")
	}
	arr := NewArray([]Value{NumberVal(1), NumberVal(2)})
	if got := ToString(ObjVal(arr)); got != "1,2" {
		t.Errorf("array join: %q", got)
	}
	if got := ToString(ObjVal(NewObject())); got != "[object Object]" {
		t.Errorf("object form: %q", got)
	}
}

func TestTypeofString(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{UndefinedVal(), "undefined"},
		{NullVal(), "object"},
		{BoolVal(true), "boolean"},
		{NumberVal(1), "number"},
		{StringVal("s"), "string"},
		{NewSymbol(), "symbol"},
		{ObjVal(NewObject()), "object"},
		{ObjVal(NewNativeFunction("f", nil)), "function"},
	}
	for _, tc := range cases {
		if got := TypeofString(tc.v); got != tc.want {
			t.Errorf("typeof %s: got %q, want %q", tc.v.Inspect(), got, tc.want)
		}
	}
}
