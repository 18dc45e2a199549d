package segment

// ScriptRange is an inclusive Unicode code point range belonging to the
// target script.
type ScriptRange struct {
	Lo rune
	Hi rune
}

// Config holds the language-specific marks and tuning thresholds for
// segmentation. The segmenter itself carries no hardcoded language
// assumptions; everything comes in through this struct.
type Config struct {
	// TerminalMarks are strong sentence-final punctuation characters.
	TerminalMarks string
	// SoftPauseMarks are weaker pause characters used as fallback break points.
	SoftPauseMarks string
	// ScriptRanges are the code point ranges a valid sentence must touch.
	ScriptRanges []ScriptRange

	// MinWords is the minimum word count for a sentence to survive FilterValid.
	MinWords int
	// MaxWords is the hard cap on run length.
	MaxWords int
	// TerminalMinWords gates splits on terminal punctuation.
	TerminalMinWords int
	// SoftPauseMinWords gates splits on soft-pause punctuation.
	SoftPauseMinWords int
	// MaxDuration is the maximum run duration in seconds before a forced split.
	MaxDuration float64
}

// DefaultJapanese returns the tuned configuration for Japanese transcripts:
// 。！？ as terminal marks, 、 as a soft pause, and hiragana/katakana/kanji
// as the target script.
func DefaultJapanese() Config {
	return Config{
		TerminalMarks:  "。！？",
		SoftPauseMarks: "、",
		ScriptRanges: []ScriptRange{
			{Lo: 0x3040, Hi: 0x309F}, // hiragana
			{Lo: 0x30A0, Hi: 0x30FF}, // katakana
			{Lo: 0x4E00, Hi: 0x9FAF}, // CJK unified ideographs
		},
		MinWords:          3,
		MaxWords:          10,
		TerminalMinWords:  5,
		SoftPauseMinWords: 7,
		MaxDuration:       8.0,
	}
}
