package transcription

import "strings"

// Align tightens each segment to its first and last timed word. Segments with
// blank text or without any timed word are dropped.
func Align(segments []RawSegment) []RawSegment {
	out := make([]RawSegment, 0, len(segments))
	for _, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		if text == "" {
			continue
		}

		start, end, ok := wordBounds(seg.Words)
		if !ok {
			continue
		}

		seg.Text = text
		seg.Start = start
		seg.End = end
		out = append(out, seg)
	}
	return out
}

func wordBounds(words []Word) (start, end float64, ok bool) {
	for _, w := range words {
		if w.Start == nil || w.End == nil {
			continue
		}
		if !ok || *w.Start < start {
			start = *w.Start
		}
		if !ok || *w.End > end {
			end = *w.End
		}
		ok = true
	}
	return start, end, ok
}
