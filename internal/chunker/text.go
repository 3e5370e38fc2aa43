package chunker

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cloo-solutions/finsight/internal/domain"
)

// chunkBody splits a textual document along paragraph boundaries, packing
// adjacent paragraphs up to the rune budget and windowing any paragraph that
// alone exceeds it. Text chunks collapse to the publication instant.
func (c *Chunker) chunkBody(doc *domain.Document) []domain.Chunk {
	segments := packSegments(splitParagraphs(doc.Body), c.cfg)
	if len(segments) == 0 {
		return nil
	}
	if c.cfg.MaxChunks > 0 && len(segments) > c.cfg.MaxChunks {
		segments = segments[:c.cfg.MaxChunks]
	}

	chunks := make([]domain.Chunk, 0, len(segments))
	for i, text := range segments {
		chunks = append(chunks, domain.Chunk{
			ID:          domain.NewChunkID(doc.ID, i),
			DocumentID:  doc.ID,
			Symbol:      doc.Symbol,
			Source:      doc.Source,
			Ordinal:     i,
			WindowStart: doc.PublishedAt,
			WindowEnd:   doc.PublishedAt,
			Text:        text,
		})
	}
	return chunks
}

func splitParagraphs(text string) []string {
	clean := strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(clean, "\n\n")
	paras := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			paras = append(paras, p)
		}
	}
	return paras
}

// packSegments greedily groups paragraphs into budgeted segments.
func packSegments(paras []string, cfg Config) []string {
	var segments []string
	var current strings.Builder
	currentRunes := 0

	flush := func() {
		if currentRunes > 0 {
			segments = append(segments, current.String())
			current.Reset()
			currentRunes = 0
		}
	}

	for _, p := range paras {
		n := utf8.RuneCountInString(p)
		if n > cfg.MaxChars {
			flush()
			segments = append(segments, splitWindowed(p, cfg)...)
			continue
		}
		if currentRunes > 0 && currentRunes+2+n > cfg.MaxChars {
			flush()
		}
		if currentRunes > 0 {
			current.WriteString("\n\n")
			currentRunes += 2
		}
		current.WriteString(p)
		currentRunes += n
	}
	flush()
	return segments
}

// splitWindowed cuts an oversized paragraph into overlapping windows,
// backtracking to whitespace so words stay intact.
func splitWindowed(text string, cfg Config) []string {
	runes := []rune(text)
	chunks := make([]string, 0, 4)
	start := 0
	for start < len(runes) {
		end := start + cfg.MaxChars
		if end > len(runes) {
			end = len(runes)
		}

		if end < len(runes) {
			cut := end
			minCut := start + cfg.MinChars
			if minCut > end {
				minCut = start
			}
			for i := end; i > minCut; i-- {
				if unicode.IsSpace(runes[i-1]) {
					cut = i
					break
				}
			}
			end = cut
		}

		if end <= start {
			break
		}

		chunk := strings.TrimSpace(string(runes[start:end]))
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		if end >= len(runes) {
			break
		}

		nextStart := end
		if cfg.Overlap > 0 && end-start > cfg.Overlap {
			nextStart = end - cfg.Overlap
		}
		if nextStart <= start {
			nextStart = end
		}
		start = nextStart
	}
	return chunks
}
