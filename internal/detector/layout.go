package detector

import (
	"math"

	"github.com/xkilldash9x/dialogskip/internal/config"
)

// ultraWideWidth is the width above which the dialogue icon drifts by an
// extra fraction per pixel.
const ultraWideWidth = 3840

// Point is a screen coordinate.
type Point struct {
	X, Y int
}

// Layout is the set of pixels the detector samples at a concrete resolution.
type Layout struct {
	Width, Height int
	Widescreen    bool

	Playing    Point
	Loading    Point
	ChoiceLow  Point
	ChoiceHigh Point
}

// IsWidescreen reports whether a resolution is wider than the base and does
// not share its aspect ratio.
func IsWidescreen(cfg config.ScreenConfig, width, height int) bool {
	if width <= cfg.BaseWidth || width == 0 {
		return false
	}
	base := float64(cfg.BaseHeight) / float64(cfg.BaseWidth)
	return math.Abs(float64(height)/float64(width)-base) > 0.001
}

// NewLayout maps the base-resolution pixel positions onto width x height.
// Proportional scaling is used unless the screen is widescreen, in which case
// the HUD icons are anchored by interpolating toward their widescreen
// positions.
func NewLayout(cfg config.ScreenConfig, width, height int) Layout {
	l := Layout{
		Width:      width,
		Height:     height,
		Widescreen: IsWidescreen(cfg, width, height),
	}
	wa := func(x int) int { return int(float64(x) / float64(cfg.BaseWidth) * float64(width)) }
	ha := func(y int) int { return int(float64(y) / float64(cfg.BaseHeight) * float64(height)) }

	icon, dlg := cfg.PlayingIcon, cfg.DialogueIcon
	if l.Widescreen {
		x := scalePos(cfg.BaseWidth, icon.X, icon.WideX, width, 0)
		l.Playing = Point{X: min(x, icon.WideX), Y: ha(icon.Y)}

		extra := 0.0
		if width > ultraWideWidth {
			extra = dlg.WideExtra
		}
		dx := scalePos(cfg.BaseWidth, dlg.X, dlg.WideX, width, extra)
		l.ChoiceLow = Point{X: dx, Y: ha(dlg.WideLowY)}
		l.ChoiceHigh = Point{X: dx, Y: ha(dlg.WideHighY)}
	} else {
		l.Playing = Point{X: wa(icon.X), Y: ha(icon.Y)}
		l.ChoiceLow = Point{X: wa(dlg.X), Y: ha(dlg.LowY)}
		l.ChoiceHigh = Point{X: wa(dlg.X), Y: ha(dlg.HighY)}
	}
	l.Loading = Point{X: wa(cfg.LoadingPixel.X), Y: ha(cfg.LoadingPixel.Y)}
	return l
}

// scalePos interpolates from the base position hd toward the widescreen
// position wide as width grows past the base width.
func scalePos(baseWidth, hd, wide, width int, extra float64) int {
	diff := float64(wide - hd)
	return int(float64(hd) + float64(width-baseWidth)*(diff/float64(baseWidth)+extra))
}
