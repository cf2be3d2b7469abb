package transfer

import (
	"errors"
	"testing"
)

func TestCopyIsolatesValues(t *testing.T) {
	original := map[string]interface{}{
		"nested": map[string]interface{}{"n": 1},
		"list":   []interface{}{"a", "b"},
	}

	copied, err := Copy(original)
	if err != nil {
		t.Fatalf("Copy() error: %v", err)
	}

	// Mutating the copy must not reach the original.
	copied.(map[string]interface{})["nested"].(map[string]interface{})["n"] = 99
	if original["nested"].(map[string]interface{})["n"] != 1 {
		t.Error("copy shares structure with the original")
	}
}

func TestCopyScalars(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"nil", nil, nil},
		{"number", 42, float64(42)},
		{"string", "hi", "hi"},
		{"bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Copy(tt.in)
			if err != nil {
				t.Fatalf("Copy() error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Copy() = %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestEncodeNotTransferable(t *testing.T) {
	_, err := Encode(func() {})
	if !errors.Is(err, ErrNotTransferable) {
		t.Errorf("Encode(func) error = %v, want ErrNotTransferable", err)
	}

	_, err = Encode(make(chan int))
	if !errors.Is(err, ErrNotTransferable) {
		t.Errorf("Encode(chan) error = %v, want ErrNotTransferable", err)
	}
}

func TestDecodeInto(t *testing.T) {
	data, err := Encode(map[string]interface{}{"name": "ctx_1", "pending": 3})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	var dst struct {
		Name    string `json:"name"`
		Pending int    `json:"pending"`
	}
	if err := DecodeInto(data, &dst); err != nil {
		t.Fatalf("DecodeInto() error: %v", err)
	}
	if dst.Name != "ctx_1" || dst.Pending != 3 {
		t.Errorf("DecodeInto() = %+v", dst)
	}
}

func TestDecodeEmpty(t *testing.T) {
	v, err := Decode(nil)
	if err != nil || v != nil {
		t.Errorf("Decode(nil) = (%v, %v), want (nil, nil)", v, err)
	}
}
