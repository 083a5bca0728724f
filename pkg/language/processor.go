package language

import (
	"context"
	"strings"
	"unicode/utf8"

	errs "policypipe/pkg/errors"
	"policypipe/pkg/logger"
	"policypipe/pkg/processor"
)

// shortSentenceLimit is the rune count under which a sentence is kept as-is
// during filtering: headers and page numbers are too short for reliable
// per-sentence detection.
const shortSentenceLimit = 10

// Processor detects languages and translates or filters text. It is the
// transform collaborator the row processor invokes per row. All
// configuration is explicit; nothing is read from the environment inside
// the processing loop.
type Processor struct {
	detector   Detector
	translator Translator
	targetLang string
	log        logger.Logger
}

// NewProcessor creates a language processor
func NewProcessor(detector Detector, translator Translator, targetLang string, log logger.Logger) *Processor {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Processor{
		detector:   detector,
		translator: translator,
		targetLang: targetLang,
		log:        log,
	}
}

// Process applies the selected mode to the text and returns the processed
// text plus the detected language
func (p *Processor) Process(ctx context.Context, text string, mode processor.Mode) (string, string, error) {
	if strings.TrimSpace(text) == "" {
		return "", "", errs.New(errs.ErrorTypeDetection, "text is empty")
	}

	detected, err := p.detector.Detect(text)
	if err != nil {
		return "", "", err
	}

	switch mode {
	case processor.ModeDetectOnly:
		return text, detected, nil

	case processor.ModeFilter:
		return p.filterEnglish(text), detected, nil

	case processor.ModeTranslate:
		translated, err := p.translate(ctx, text, detected)
		return translated, detected, err

	case processor.ModeAuto:
		if detected == p.targetLang {
			return text, detected, nil
		}
		translated, err := p.translate(ctx, text, detected)
		return translated, detected, err
	}

	// Unreachable for modes that passed ParseMode
	return "", "", errs.New(errs.ErrorTypeUnknown, "unsupported mode "+mode.String())
}

// translate translates text sentence by sentence. A sentence that fails to
// translate is kept in the original language rather than dropped, so a
// flaky endpoint degrades the output instead of losing content.
func (p *Processor) translate(ctx context.Context, text, sourceLang string) (string, error) {
	sentences := SplitSentences(text, sourceLang)
	if len(sentences) == 0 {
		return "", errs.New(errs.ErrorTypeTranslation, "no sentences to translate")
	}

	translated := make([]string, 0, len(sentences))
	failures := 0
	for _, sentence := range sentences {
		// Context cancellation is not a per-sentence condition
		if err := ctx.Err(); err != nil {
			return "", err
		}

		out, err := p.translator.Translate(ctx, sentence, sourceLang, p.targetLang)
		if err != nil {
			p.log.WarnWithFields("sentence translation failed, keeping original", map[string]interface{}{
				"error": err.Error(),
			})
			translated = append(translated, sentence)
			failures++
			continue
		}
		if out != "" {
			translated = append(translated, out)
		}
	}

	// If nothing translated, the row failed rather than silently passing
	// through untouched text
	if failures == len(sentences) {
		return "", errs.New(errs.ErrorTypeTranslation, "all sentences failed to translate")
	}

	return strings.Join(translated, " "), nil
}

// filterEnglish keeps only the sentences detected as English. Short
// sentences are kept as-is and detection failures keep the sentence, the
// conservative choice for legal text where dropping content is worse than
// keeping a stray line.
func (p *Processor) filterEnglish(text string) string {
	sentences := SplitSentences(text, "en")

	var kept []string
	for _, sentence := range sentences {
		if utf8.RuneCountInString(sentence) < shortSentenceLimit {
			kept = append(kept, sentence)
			continue
		}

		detected, err := p.detector.Detect(sentence)
		if err != nil || detected == "en" {
			kept = append(kept, sentence)
		}
	}

	return strings.Join(kept, " ")
}
