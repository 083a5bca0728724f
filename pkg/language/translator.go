package language

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	errs "policypipe/pkg/errors"
	"policypipe/pkg/logger"
	"policypipe/pkg/ratelimit"
	"policypipe/pkg/retry"
)

// Translator translates text between languages
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// HTTPTranslator talks to a Google-Translate-compatible endpoint
// (translate_a/single with client=gtx). Requests are rate limited and
// retried with exponential backoff; the endpoint throttles aggressively.
type HTTPTranslator struct {
	endpoint string
	client   *http.Client
	limiter  ratelimit.Limiter
	retryCfg *retry.Config
	log      logger.Logger
}

// TranslatorOptions configures an HTTPTranslator
type TranslatorOptions struct {
	Endpoint string
	Timeout  time.Duration
	Limiter  ratelimit.Limiter
	Retry    *retry.Config
	Logger   logger.Logger
}

// NewHTTPTranslator creates a translator client
func NewHTTPTranslator(opts TranslatorOptions) *HTTPTranslator {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.PerMinute(60, 10)
	}
	if opts.Retry == nil {
		opts.Retry = retry.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = logger.GetLogger()
	}

	return &HTTPTranslator{
		endpoint: opts.Endpoint,
		client:   &http.Client{Timeout: opts.Timeout},
		limiter:  opts.Limiter,
		retryCfg: opts.Retry,
		log:      opts.Logger,
	}
}

// Translate translates a single piece of text
func (t *HTTPTranslator) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if sourceLang == targetLang {
		return text, nil
	}

	cfg := *t.retryCfg
	cfg.Context = ctx

	return retry.DoWithResult(func() (string, error) {
		if err := t.limiter.Wait(ctx); err != nil {
			return "", err
		}
		return t.translateOnce(ctx, text, sourceLang, targetLang)
	}, &cfg)
}

// translateOnce performs one request against the endpoint
func (t *HTTPTranslator) translateOnce(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	params := url.Values{}
	params.Set("client", "gtx")
	params.Set("sl", MapLanguageCode(sourceLang))
	params.Set("tl", targetLang)
	params.Set("dt", "t")
	params.Set("q", text)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return "", errs.New(errs.ErrorTypeTranslation, err.Error())
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.FromStatusCode(resp.StatusCode, "translation request failed")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.New(errs.ErrorTypeNetwork, err.Error())
	}

	translated, err := parseTranslateResponse(body)
	if err != nil {
		return "", err
	}

	t.log.DebugWithFields("sentence translated", map[string]interface{}{
		"source": sourceLang,
		"target": targetLang,
		"chars":  len(text),
	})

	return translated, nil
}

// parseTranslateResponse extracts the translated text from the endpoint's
// nested-array response: [[["translated","original",...],...],...]
func parseTranslateResponse(body []byte) (string, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("unexpected translation response: %v", err))
	}
	if len(raw) == 0 {
		return "", errs.New(errs.ErrorTypeParsing, "empty translation response")
	}

	var segments [][]json.RawMessage
	if err := json.Unmarshal(raw[0], &segments); err != nil {
		return "", errs.New(errs.ErrorTypeParsing, fmt.Sprintf("unexpected translation segments: %v", err))
	}

	var b strings.Builder
	for _, seg := range segments {
		if len(seg) == 0 {
			continue
		}
		var piece string
		if err := json.Unmarshal(seg[0], &piece); err != nil {
			continue
		}
		b.WriteString(piece)
	}

	return b.String(), nil
}
