package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

// ApplyResolutionOverride reads WIDTH and HEIGHT from a dotenv file and, when
// both are positive integers, uses them as the screen resolution. It reports
// whether an override was applied. A missing file is not an error.
func (c *Config) ApplyResolutionOverride(path string) (bool, error) {
	values, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("reading resolution override %q: %w", path, err)
	}

	rawW, okW := values["WIDTH"]
	rawH, okH := values["HEIGHT"]
	if !okW || !okH {
		return false, nil
	}
	w, errW := strconv.Atoi(rawW)
	h, errH := strconv.Atoi(rawH)
	if err := errors.Join(errW, errH); err != nil {
		return false, fmt.Errorf("parsing resolution override %q: %w", path, err)
	}
	if w <= 0 || h <= 0 {
		return false, fmt.Errorf("resolution override %dx%d must be positive", w, h)
	}

	c.Screen.Width, c.Screen.Height = w, h
	return true, nil
}
