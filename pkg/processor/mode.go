package processor

import "fmt"

// Mode selects which branch of the transform a run applies to each row
type Mode string

const (
	// ModeAuto detects the language and translates only non-English text
	ModeAuto Mode = "auto"
	// ModeTranslate always translates to the target language
	ModeTranslate Mode = "translate"
	// ModeFilter keeps only English sentences
	ModeFilter Mode = "filter"
	// ModeDetectOnly detects the language without changing the text
	ModeDetectOnly Mode = "detect_only"
)

// ParseMode validates a mode string at the boundary so invalid modes fail
// fast instead of propagating into the transform
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeAuto, ModeTranslate, ModeFilter, ModeDetectOnly:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid mode %q (valid: auto, translate, filter, detect_only)", s)
	}
}

func (m Mode) String() string {
	return string(m)
}
