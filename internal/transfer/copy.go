package transfer

import (
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
)

// ErrNotTransferable marks a value that cannot cross a context boundary.
var ErrNotTransferable = errors.New("value is not transferable")

// Encode serializes a value for transport across a lane boundary.
func Encode(v interface{}) ([]byte, error) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotTransferable, err)
	}
	return data, nil
}

// Decode materializes transported bytes as a fresh value for the
// receiving lane.
func Decode(data []byte) (interface{}, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var v interface{}
	if err := sonic.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode transferred value: %w", err)
	}
	return v, nil
}

// DecodeInto materializes transported bytes into a typed destination.
func DecodeInto(data []byte, dst interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode transferred value: %w", err)
	}
	return nil
}

// Copy deep-copies a value through serialization, severing every pointer
// back to the source context.
func Copy(v interface{}) (interface{}, error) {
	data, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}
