package detector

import (
	"fmt"
	"strconv"
	"strings"
)

// Color is a packed 0x00RRGGBB value.
type Color uint32

// InvalidColor is what a probe returns when a pixel could not be read.
const InvalidColor Color = 0xFFFFFFFF

// RGB packs three channels into a Color.
func RGB(r, g, b uint8) Color {
	return Color(r)<<16 | Color(g)<<8 | Color(b)
}

func (c Color) R() uint8 { return uint8(c >> 16) }
func (c Color) G() uint8 { return uint8(c >> 8) }
func (c Color) B() uint8 { return uint8(c) }

func (c Color) String() string {
	if c == InvalidColor {
		return "invalid"
	}
	return fmt.Sprintf("rgb(%d,%d,%d)", c.R(), c.G(), c.B())
}

// ParseHex reads a six digit hex color such as "ece5d8" or "#ece5d8".
func ParseHex(s string) (Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return InvalidColor, fmt.Errorf("hex color %q must have six digits", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return InvalidColor, fmt.Errorf("parsing hex color %q: %w", s, err)
	}
	return Color(v), nil
}

// ColorsMatch reports whether every channel of c is within tolerance of
// (r, g, b). InvalidColor never matches.
func ColorsMatch(c Color, r, g, b, tolerance int) bool {
	if c == InvalidColor {
		return false
	}
	return absDiff(int(c.R()), r) <= tolerance &&
		absDiff(int(c.G()), g) <= tolerance &&
		absDiff(int(c.B()), b) <= tolerance
}

func absDiff(a, b int) int {
	if a > b {
		return a - b
	}
	return b - a
}
