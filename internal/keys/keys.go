// Package keys maps Windows virtual key codes, the unit used in the config
// file, onto the key names the input backend understands.
package keys

import (
	"errors"
	"fmt"
)

// Code is a Windows virtual key code.
type Code uint16

const (
	Space Code = 0x20
	F     Code = 0x46
	T     Code = 0x54
	F7    Code = 0x76
	F8    Code = 0x77
	F9    Code = 0x78
	F12   Code = 0x7B
)

// ErrUnknownKey is returned for codes with no backend name.
var ErrUnknownKey = errors.New("unknown virtual key code")

var named = map[Code]string{
	0x08: "backspace",
	0x09: "tab",
	0x0D: "enter",
	0x1B: "esc",
	0x20: "space",
	0x25: "left",
	0x26: "up",
	0x27: "right",
	0x28: "down",
}

// Name returns the backend key name for c. Digits and letters map to their
// lowercase character, F1-F24 to "f1".."f24".
func Name(c Code) (string, error) {
	switch {
	case c >= '0' && c <= '9':
		return string(rune(c)), nil
	case c >= 'A' && c <= 'Z':
		return string(rune(c - 'A' + 'a')), nil
	case c >= 0x70 && c <= 0x87:
		return fmt.Sprintf("f%d", c-0x70+1), nil
	}
	if name, ok := named[c]; ok {
		return name, nil
	}
	return "", fmt.Errorf("%w: 0x%02X", ErrUnknownKey, uint16(c))
}

func (c Code) String() string {
	if name, err := Name(c); err == nil {
		return name
	}
	return fmt.Sprintf("0x%02X", uint16(c))
}
