package anki

import (
	"crypto/rand"
	"encoding/binary"
	"time"
)

const modelName = "Subs2SRS Japanese"

const cardCSS = `
.card {
    font-family: "Hiragino Kaku Gothic Pro", "Meiryo", "MS Gothic", sans-serif;
    font-size: 24px;
    text-align: center;
    color: black;
    background-color: white;
}

img {
    max-width: 100%;
    height: auto;
}
`

// randomID returns an id in [1<<30, 1<<31), the range Anki expects for
// client-generated deck and model ids.
func randomID() int64 {
	var b [8]byte
	rand.Read(b[:])
	return 1<<30 + int64(binary.BigEndian.Uint64(b[:])%(1<<30))
}

// noteModel builds the note model JSON: three fields (Audio, Image,
// Sentence), audio and image on the front, the sentence revealed on the back.
func noteModel(mid int64, now time.Time) map[string]interface{} {
	field := func(name string, ord int) map[string]interface{} {
		return map[string]interface{}{
			"name":   name,
			"ord":    ord,
			"sticky": false,
			"rtl":    false,
			"font":   "Arial",
			"size":   20,
			"media":  []interface{}{},
		}
	}
	return map[string]interface{}{
		"id":        mid,
		"name":      modelName,
		"type":      0,
		"mod":       now.Unix(),
		"usn":       -1,
		"sortf":     0,
		"did":       nil,
		"tags":      []interface{}{},
		"vers":      []interface{}{},
		"latexPre":  "\\documentclass[12pt]{article}\n\\special{papersize=3in,5in}\n\\usepackage[utf8]{inputenc}\n\\usepackage{amssymb,amsmath}\n\\pagestyle{empty}\n\\setlength{\\parindent}{0in}\n\\begin{document}\n",
		"latexPost": "\\end{document}",
		"css":       cardCSS,
		"flds": []interface{}{
			field("Audio", 0),
			field("Image", 1),
			field("Sentence", 2),
		},
		"tmpls": []interface{}{
			map[string]interface{}{
				"name":  "Card 1",
				"ord":   0,
				"qfmt":  "{{Audio}}<br>{{Image}}",
				"afmt":  "{{FrontSide}}<hr id=\"answer\">{{Sentence}}",
				"bqfmt": "",
				"bafmt": "",
				"did":   nil,
			},
		},
		"req": []interface{}{
			[]interface{}{0, "any", []interface{}{0, 1}},
		},
	}
}

func deckJSON(did int64, name string, now time.Time) map[string]interface{} {
	return map[string]interface{}{
		"id":        did,
		"name":      name,
		"desc":      "",
		"mod":       now.Unix(),
		"usn":       -1,
		"collapsed": false,
		"dyn":       0,
		"conf":      1,
		"extendNew": 0,
		"extendRev": 50,
		"newToday":  []interface{}{0, 0},
		"revToday":  []interface{}{0, 0},
		"lrnToday":  []interface{}{0, 0},
		"timeToday": []interface{}{0, 0},
	}
}

func collectionConf(mid int64) map[string]interface{} {
	return map[string]interface{}{
		"activeDecks":   []interface{}{1},
		"addToCur":      true,
		"collapseTime":  1200,
		"curDeck":       1,
		"curModel":      mid,
		"dueCounts":     true,
		"estTimes":      true,
		"newBury":       true,
		"newSpread":     0,
		"nextPos":       1,
		"sortBackwards": false,
		"sortType":      "noteFld",
		"timeLim":       0,
	}
}

func deckConf() map[string]interface{} {
	return map[string]interface{}{
		"1": map[string]interface{}{
			"id":       1,
			"name":     "Default",
			"autoplay": true,
			"dyn":      false,
			"maxTaken": 60,
			"mod":      0,
			"replayq":  true,
			"timer":    0,
			"usn":      0,
			"new": map[string]interface{}{
				"bury":          true,
				"delays":        []interface{}{1, 10},
				"initialFactor": 2500,
				"ints":          []interface{}{1, 4, 7},
				"order":         1,
				"perDay":        20,
				"separate":      true,
			},
			"rev": map[string]interface{}{
				"bury":     true,
				"ease4":    1.3,
				"fuzz":     0.05,
				"ivlFct":   1,
				"maxIvl":   36500,
				"minSpace": 1,
				"perDay":   100,
			},
			"lapse": map[string]interface{}{
				"delays":      []interface{}{10},
				"leechAction": 0,
				"leechFails":  8,
				"minInt":      1,
				"mult":        0,
			},
		},
	}
}
