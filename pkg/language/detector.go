package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"

	errs "policypipe/pkg/errors"
)

// Detector identifies the language of a text sample, returning an ISO 639-1
// code where one exists
type Detector interface {
	Detect(text string) (string, error)
}

// TrigramDetector detects languages offline using whatlanggo's trigram
// profiles. Detection is deterministic, which the resume and idempotence
// guarantees of the row processor depend on.
type TrigramDetector struct {
	// SampleSize bounds how many runes are examined (0 = whole text)
	SampleSize int
}

// NewDetector creates a detector that samples up to sampleSize runes
func NewDetector(sampleSize int) *TrigramDetector {
	return &TrigramDetector{SampleSize: sampleSize}
}

// Detect returns the language code of the text
func (d *TrigramDetector) Detect(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", errs.New(errs.ErrorTypeDetection, "text is empty")
	}

	// Detection on a bounded sample is much cheaper on long documents
	if d.SampleSize > 0 {
		runes := []rune(trimmed)
		if len(runes) > d.SampleSize {
			trimmed = string(runes[:d.SampleSize])
		}
	}

	info := whatlanggo.Detect(trimmed)
	if whatlanggo.LangToString(info.Lang) == "" {
		return "", errs.New(errs.ErrorTypeDetection, "could not determine language")
	}

	return isoCode(info.Lang), nil
}

// isoCode maps a detected language to its ISO 639-1 code, falling back to
// the ISO 639-3 code for languages without a two-letter code
func isoCode(lang whatlanggo.Lang) string {
	iso3 := whatlanggo.LangToString(lang)
	if iso1, ok := iso639_1[iso3]; ok {
		return iso1
	}
	return iso3
}

// iso639_1 maps the ISO 639-3 codes whatlanggo reports to the two-letter
// codes the translation endpoint expects
var iso639_1 = map[string]string{
	"eng": "en",
	"fra": "fr",
	"deu": "de",
	"spa": "es",
	"por": "pt",
	"ita": "it",
	"nld": "nl",
	"rus": "ru",
	"cmn": "zh",
	"jpn": "ja",
	"kor": "ko",
	"arb": "ar",
	"swe": "sv",
	"dan": "da",
	"nob": "no",
	"fin": "fi",
	"pol": "pl",
	"tur": "tr",
	"ell": "el",
	"heb": "he",
	"hin": "hi",
	"vie": "vi",
	"tha": "th",
	"ind": "id",
	"ukr": "uk",
	"ces": "cs",
	"ron": "ro",
	"hun": "hu",
	"bul": "bg",
	"cat": "ca",
	"srp": "sr",
	"hrv": "hr",
	"slk": "sk",
	"lit": "lt",
	"lav": "lv",
	"est": "et",
	"pes": "fa",
	"urd": "ur",
	"ben": "bn",
}

// MapLanguageCode maps detected codes to the form the translation endpoint
// expects. Detection reports bare "zh" but translation needs a script
// variant, defaulting Chinese to Simplified.
func MapLanguageCode(lang string) string {
	switch strings.ToLower(lang) {
	case "zh", "zh-cn":
		return "zh-CN"
	case "zh-tw":
		return "zh-TW"
	default:
		return lang
	}
}
