package segment

import "strings"

// Word is a single transcribed word with timestamps in seconds.
// Word sequences arrive ordered by start time from the transcription service.
type Word struct {
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

// Sentence is a contiguous run of words treated as one flashcard unit.
type Sentence struct {
	Words   []Word  `json:"words"`
	Text    string  `json:"text"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
	Speaker string  `json:"speaker,omitempty"`
}

func newSentence(words []Word) Sentence {
	var b strings.Builder
	for _, w := range words {
		b.WriteString(w.Text)
	}
	return Sentence{
		Words:   words,
		Text:    b.String(),
		Start:   words[0].Start,
		End:     words[len(words)-1].End,
		Speaker: words[0].Speaker,
	}
}

// Segment splits a word stream into sentences in a single forward pass.
//
// After each word is appended to the current run, the split triggers are
// evaluated in priority order:
//
//  1. speaker change between the current and next word
//  2. terminal punctuation, once the run has at least TerminalMinWords
//  3. run duration reached MaxDuration, once the run has at least MinWords
//  4. soft-pause punctuation, once the run has at least SoftPauseMinWords
//  5. run reached MaxWords (hard cap)
//  6. end of stream (always closes the final run)
//
// Short runs are emitted too; dropping them is FilterValid's job, so boundary
// detection stays separate from quality filtering.
func Segment(words []Word, cfg Config) []Sentence {
	if len(words) == 0 {
		return nil
	}

	var sentences []Sentence
	var run []Word

	for i, w := range words {
		run = append(run, w)

		var next *Word
		if i+1 < len(words) {
			next = &words[i+1]
		}

		if splitAfter(run, w, next, cfg) {
			sentences = append(sentences, newSentence(run))
			run = nil
		}
	}

	return sentences
}

func splitAfter(run []Word, w Word, next *Word, cfg Config) bool {
	if next == nil {
		return true
	}
	switch {
	case w.Speaker != next.Speaker:
		return true
	case strings.ContainsAny(w.Text, cfg.TerminalMarks) && len(run) >= cfg.TerminalMinWords:
		return true
	case w.End-run[0].Start >= cfg.MaxDuration && len(run) >= cfg.MinWords:
		return true
	case strings.ContainsAny(w.Text, cfg.SoftPauseMarks) && len(run) >= cfg.SoftPauseMinWords:
		return true
	case len(run) >= cfg.MaxWords:
		return true
	}
	return false
}

// FilterValid drops sentences that are too short or contain no character from
// the configured target script (pure noise, silence artifacts, stray Latin
// filler). It is idempotent and order-preserving.
func FilterValid(sentences []Sentence, cfg Config) []Sentence {
	valid := make([]Sentence, 0, len(sentences))
	for _, s := range sentences {
		if len(s.Words) < cfg.MinWords {
			continue
		}
		if !containsScript(s.Text, cfg.ScriptRanges) {
			continue
		}
		valid = append(valid, s)
	}
	return valid
}

func containsScript(text string, ranges []ScriptRange) bool {
	for _, r := range text {
		for _, sr := range ranges {
			if r >= sr.Lo && r <= sr.Hi {
				return true
			}
		}
	}
	return false
}
