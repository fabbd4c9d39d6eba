package core

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  plain  ", "plain"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanCell(tt.in); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestCellNumber(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float", 3.5, 3.5, true},
		{"int", 4, 4, true},
		{"json number", json.Number("7"), 7, true},
		{"string", " 12 ", 12, true},
		{"thousands", "1,200", 1200, true},
		{"formula", `="5"`, 5, true},
		{"text", "five", 0, false},
		{"nil", nil, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CellNumber(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("CellNumber(%v) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestCellString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"whole float", 3.0, "3"},
		{"fraction", 2.5, "2.5"},
		{"trimmed", "  a ", "a"},
		{"slice", []any{"a", 1.0}, "a,1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CellString(tt.in); got != tt.want {
				t.Errorf("CellString(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		name      string
		in        any
		wantItems []string
		wantEmpty int
		wantDups  []string
		wantStr   string
	}{
		{"simple", "a, b,c", []string{"a", "b", "c"}, 0, nil, "a,b,c"},
		{"empty entries", "a,,b,", []string{"a", "b"}, 2, nil, "a,b"},
		{"duplicates", "ml, ML, go", []string{"ml", "go"}, 0, []string{"ML"}, "ml,go"},
		{"bracketed", `["T1","T2"]`, []string{"T1", "T2"}, 0, nil, "[T1,T2]"},
		{"json array", []any{"x", "y"}, []string{"x", "y"}, 0, nil, "[x,y]"},
		{"blank", "  ", nil, 0, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SplitList(tt.in)
			if !reflect.DeepEqual(got.Items, tt.wantItems) {
				t.Errorf("Items = %v, want %v", got.Items, tt.wantItems)
			}
			if got.EmptyEntries != tt.wantEmpty {
				t.Errorf("EmptyEntries = %d, want %d", got.EmptyEntries, tt.wantEmpty)
			}
			if !reflect.DeepEqual(got.Duplicates, tt.wantDups) {
				t.Errorf("Duplicates = %v, want %v", got.Duplicates, tt.wantDups)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}

func TestSplitIDList(t *testing.T) {
	got := SplitIDList("t1, T1, T1")
	if !reflect.DeepEqual(got.Items, []string{"t1", "T1"}) {
		t.Errorf("Items = %v, want [t1 T1]", got.Items)
	}
	if !reflect.DeepEqual(got.Duplicates, []string{"T1"}) {
		t.Errorf("Duplicates = %v, want [T1]", got.Duplicates)
	}
}

func TestParseNumberList(t *testing.T) {
	tests := []struct {
		name        string
		in          any
		wantValues  []int
		wantInvalid []string
		wantClean   bool
		wantStr     string
	}{
		{"bracketed", "[1,2,3]", []int{1, 2, 3}, nil, true, "[1,2,3]"},
		{"plain", "1, 2", []int{1, 2}, nil, true, "1,2"},
		{"range", "1-3", []int{1, 2, 3}, nil, true, "1,2,3"},
		{"mixed range", "[1, 4-5]", []int{1, 4, 5}, nil, true, "[1,4,5]"},
		{"scalar float", 2.0, []int{2}, nil, true, "2"},
		{"empty entry", "1,,2", []int{1, 2}, nil, false, "1,2"},
		{"unbalanced", "[1,2", []int{1, 2}, nil, false, "[1,2]"},
		{"duplicate", "1,1,2", []int{1, 2}, nil, false, "1,2"},
		{"invalid token", "1,x", []int{1}, []string{"x"}, false, "1"},
		{"reversed range", "3-1", nil, []string{"3-1"}, false, ""},
		{"json array", []any{1.0, 2.0}, []int{1, 2}, nil, true, "[1,2]"},
		{"range past max phase", "1-20000000", nil, []string{"1-20000000"}, false, ""},
		{"value past max phase", "[1,1001]", []int{1}, []string{"1001"}, false, "[1]"},
		{"scalar past max phase", 2e9, nil, []string{"2000000000"}, false, ""},
		{"max phase", "1000", []int{1000}, nil, true, "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseNumberList(tt.in)
			if !reflect.DeepEqual(got.Values, tt.wantValues) {
				t.Errorf("Values = %v, want %v", got.Values, tt.wantValues)
			}
			if !reflect.DeepEqual(got.Invalid, tt.wantInvalid) {
				t.Errorf("Invalid = %v, want %v", got.Invalid, tt.wantInvalid)
			}
			if got.Clean() != tt.wantClean {
				t.Errorf("Clean() = %v, want %v", got.Clean(), tt.wantClean)
			}
			if got.String() != tt.wantStr {
				t.Errorf("String() = %q, want %q", got.String(), tt.wantStr)
			}
		})
	}
}

func TestSlotCount(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   int
		wantOK bool
	}{
		{"scalar string is a count", "3", 3, true},
		{"scalar number is a count", 4.0, 4, true},
		{"list counts entries", "[1,3,5]", 3, true},
		{"single bracketed phase", "[2]", 1, true},
		{"range counts entries", "2-4", 3, true},
		{"blank", "", 0, false},
		{"garbage", "abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SlotCount(tt.in)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("SlotCount(%v) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestSlotPhases(t *testing.T) {
	if got := SlotPhases("3"); !reflect.DeepEqual(got, []int{1, 2, 3}) {
		t.Errorf("SlotPhases(3) = %v", got)
	}
	if got := SlotPhases("[2,4]"); !reflect.DeepEqual(got, []int{2, 4}) {
		t.Errorf("SlotPhases([2,4]) = %v", got)
	}
	if got := SlotPhases("2000000000"); len(got) != 0 {
		t.Errorf("SlotPhases(2000000000) has %d phases, want none", len(got))
	}
	if got := SlotPhases("1000"); len(got) != MaxPhase {
		t.Errorf("SlotPhases(1000) has %d phases, want %d", len(got), MaxPhase)
	}
}

func TestNumberLike(t *testing.T) {
	if got := NumberLike(2.0, 5); got != 5.0 {
		t.Errorf("NumberLike(float) = %#v", got)
	}
	if got := NumberLike("2", 5); got != "5" {
		t.Errorf("NumberLike(string) = %#v", got)
	}
}
