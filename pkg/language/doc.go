// Package language implements the transform collaborator for the row
// processor: offline language detection, language-aware sentence
// tokenization, English-only filtering, and sentence-by-sentence
// translation through an HTTP endpoint.
package language
