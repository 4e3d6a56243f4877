// Package textchunk splits long observation text into embedding-sized chunks.
//
// The splitter prefers natural boundaries over blind cuts: enumeration
// markers like "(1)", "(2)" first, then paragraph breaks, then sentence
// boundaries. Only a sentence longer than the chunk budget gets cut at an
// arbitrary word boundary, and the result is flagged as degraded.
package textchunk

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

type Config struct {
	// MaxChars is the chunk budget. Chunk bodies stay at or below it;
	// the overlap carried from the previous chunk comes on top.
	MaxChars int

	// OverlapChars is how many trailing characters of a chunk are
	// repeated at the start of the next one for retrieval continuity.
	OverlapChars int
}

func DefaultConfig() Config {
	return Config{
		MaxChars:     800,
		OverlapChars: 50,
	}
}

// Result holds the produced chunks. Degraded is set when at least one
// sentence exceeded the budget and had to be cut mid-sentence.
type Result struct {
	Chunks   []string
	Degraded bool
}

var (
	enumMarker  = regexp.MustCompile(`\(\d+\)`)
	contextHead = regexp.MustCompile(`^[^:\n]{1,80}:`)
)

// Split breaks text into chunks of at most cfg.MaxChars (plus overlap).
// Text that already fits is returned unchanged as a single chunk. When a
// split happens, every chunk is labeled "(Part i/N)" after the leading
// context prefix (e.g. a date) so each chunk stays self-describing.
func Split(text string, cfg Config) Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Result{}
	}

	if cfg.MaxChars <= 0 {
		cfg.MaxChars = 800
	}
	if cfg.OverlapChars < 0 {
		cfg.OverlapChars = 0
	}
	if cfg.OverlapChars >= cfg.MaxChars {
		cfg.OverlapChars = cfg.MaxChars / 5
	}

	if len(trimmed) <= cfg.MaxChars {
		return Result{Chunks: []string{trimmed}}
	}

	prefix := contextHead.FindString(trimmed)

	chunks, degraded := pack(splitSections(trimmed), cfg)
	if len(chunks) <= 1 {
		return Result{Chunks: chunks, Degraded: degraded}
	}

	labeled := make([]string, len(chunks))
	for i, chunk := range chunks {
		body := strings.TrimSpace(strings.TrimPrefix(chunk, prefix))
		label := fmt.Sprintf("(Part %d/%d)", i+1, len(chunks))
		if prefix != "" {
			labeled[i] = fmt.Sprintf("%s %s %s", prefix, label, body)
		} else {
			labeled[i] = fmt.Sprintf("%s %s", label, body)
		}
	}

	return Result{Chunks: labeled, Degraded: degraded}
}

// splitSections breaks text at its coarsest natural boundaries: before
// each enumeration marker when the text carries at least two of them,
// otherwise at paragraph breaks.
func splitSections(text string) []string {
	if locs := enumMarker.FindAllStringIndex(text, -1); len(locs) >= 2 {
		var parts []string
		prev := 0
		for _, loc := range locs {
			if loc[0] > prev {
				parts = append(parts, text[prev:loc[0]])
				prev = loc[0]
			}
		}
		parts = append(parts, text[prev:])
		return parts
	}

	if parts := strings.Split(text, "\n\n"); len(parts) > 1 {
		return parts
	}

	return []string{text}
}

// pack greedily accumulates sections (and, for oversized sections,
// sentences) into chunks within the budget, carrying overlap across
// chunk boundaries.
func pack(sections []string, cfg Config) ([]string, bool) {
	var (
		chunks   []string
		current  strings.Builder
		degraded bool
	)

	flush := func() {
		chunk := strings.TrimSpace(current.String())
		if chunk != "" {
			chunks = append(chunks, chunk)
		}
		overlap := getOverlap(current.String(), cfg.OverlapChars)
		current.Reset()
		current.WriteString(overlap)
	}

	add := func(piece string) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			return
		}
		if current.Len() > 0 && current.Len()+len(piece)+1 > cfg.MaxChars {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(piece)
	}

	for _, sec := range sections {
		sec = strings.TrimSpace(sec)
		if sec == "" {
			continue
		}
		if len(sec) <= cfg.MaxChars {
			add(sec)
			continue
		}
		for _, sent := range splitSentences(sec) {
			if len(sent) <= cfg.MaxChars {
				add(sent)
				continue
			}
			degraded = true
			for _, piece := range hardCut(sent, cfg.MaxChars) {
				add(piece)
			}
		}
	}

	if chunk := strings.TrimSpace(current.String()); chunk != "" {
		chunks = append(chunks, chunk)
	}

	return chunks, degraded
}

// splitSentences splits at terminal punctuation followed by whitespace.
func splitSentences(text string) []string {
	var out []string
	start := 0
	for i := 0; i < len(text)-1; i++ {
		c := text[i]
		if (c == '.' || c == '!' || c == '?') && isSpaceByte(text[i+1]) {
			if sent := strings.TrimSpace(text[start : i+1]); sent != "" {
				out = append(out, sent)
			}
			start = i + 1
		}
	}
	if tail := strings.TrimSpace(text[start:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

func isSpaceByte(b byte) bool {
	return b == ' ' || b == '\n' || b == '\t' || b == '\r'
}

// hardCut slices an oversized sentence at word boundaries near the
// budget. Rune-safe; falls back to a mid-word cut only when a single
// word exceeds the whole budget.
func hardCut(text string, maxChars int) []string {
	var pieces []string
	runes := []rune(text)
	start := 0

	for start < len(runes) {
		end := start + maxChars
		if end >= len(runes) {
			pieces = append(pieces, strings.TrimSpace(string(runes[start:])))
			break
		}

		cut := end
		for cut > start && !unicode.IsSpace(runes[cut]) {
			cut--
		}
		if cut == start {
			cut = end
		}

		if piece := strings.TrimSpace(string(runes[start:cut])); piece != "" {
			pieces = append(pieces, piece)
		}

		start = cut
		for start < len(runes) && unicode.IsSpace(runes[start]) {
			start++
		}
	}

	return pieces
}

// getOverlap returns the trailing word-aligned slice of text, at most
// size runes long.
func getOverlap(text string, size int) string {
	if size <= 0 || len(text) == 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= size {
		return strings.TrimSpace(text)
	}

	start := len(runes) - size
	for start < len(runes) && !unicode.IsSpace(runes[start]) {
		start++
	}
	for start < len(runes) && unicode.IsSpace(runes[start]) {
		start++
	}

	if start >= len(runes) {
		return ""
	}

	return string(runes[start:])
}
