package anki

import (
	"archive/zip"
	"crypto/rand"
	"crypto/sha1"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/subs2srs/backend/internal/cards"
)

// Packager writes Anki .apkg archives: a sqlite collection plus all
// referenced media files in one zip.
type Packager struct{}

// BuildPackage serializes the card list into a self-contained .apkg at
// outPath. The archive embeds every referenced clip and image; the note
// model plays audio and shows the image on the front and reveals the
// sentence on the back.
func (Packager) BuildPackage(cardList []cards.Card, deckName, outPath string) error {
	tmpDir, err := os.MkdirTemp("", "apkg-*")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)

	collectionPath := filepath.Join(tmpDir, "collection.anki2")
	media, err := writeCollection(collectionPath, cardList, deckName)
	if err != nil {
		return fmt.Errorf("write collection: %w", err)
	}

	if err := writeArchive(outPath, collectionPath, media); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	log.Printf("[anki] wrote %s (%d cards, %d media files)", outPath, len(cardList), len(media))
	return nil
}

const collectionSchema = `
CREATE TABLE col (
	id integer PRIMARY KEY,
	crt integer NOT NULL,
	mod integer NOT NULL,
	scm integer NOT NULL,
	ver integer NOT NULL,
	dty integer NOT NULL,
	usn integer NOT NULL,
	ls integer NOT NULL,
	conf text NOT NULL,
	models text NOT NULL,
	decks text NOT NULL,
	dconf text NOT NULL,
	tags text NOT NULL
);
CREATE TABLE notes (
	id integer PRIMARY KEY,
	guid text NOT NULL,
	mid integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	tags text NOT NULL,
	flds text NOT NULL,
	sfld text NOT NULL,
	csum integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE cards (
	id integer PRIMARY KEY,
	nid integer NOT NULL,
	did integer NOT NULL,
	ord integer NOT NULL,
	mod integer NOT NULL,
	usn integer NOT NULL,
	type integer NOT NULL,
	queue integer NOT NULL,
	due integer NOT NULL,
	ivl integer NOT NULL,
	factor integer NOT NULL,
	reps integer NOT NULL,
	lapses integer NOT NULL,
	left integer NOT NULL,
	odue integer NOT NULL,
	odid integer NOT NULL,
	flags integer NOT NULL,
	data text NOT NULL
);
CREATE TABLE revlog (
	id integer PRIMARY KEY,
	cid integer NOT NULL,
	usn integer NOT NULL,
	ease integer NOT NULL,
	ivl integer NOT NULL,
	lastIvl integer NOT NULL,
	factor integer NOT NULL,
	time integer NOT NULL,
	type integer NOT NULL
);
CREATE TABLE graves (
	usn integer NOT NULL,
	oid integer NOT NULL,
	type integer NOT NULL
);
CREATE INDEX ix_notes_csum ON notes (csum);
CREATE INDEX ix_cards_nid ON cards (nid);
CREATE INDEX ix_cards_sched ON cards (did, queue, due);
CREATE INDEX ix_revlog_cid ON revlog (cid);
`

// writeCollection creates collection.anki2 and returns the media files to
// embed, in archive index order.
func writeCollection(path string, cardList []cards.Card, deckName string) ([]string, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if _, err := db.Exec(collectionSchema); err != nil {
		return nil, err
	}

	now := time.Now()
	mid := randomID()
	did := randomID()

	models, err := json.Marshal(map[string]interface{}{
		strconv.FormatInt(mid, 10): noteModel(mid, now),
	})
	if err != nil {
		return nil, err
	}
	decks, err := json.Marshal(map[string]interface{}{
		"1": deckJSON(1, "Default", now),
		strconv.FormatInt(did, 10): deckJSON(did, deckName, now),
	})
	if err != nil {
		return nil, err
	}
	conf, err := json.Marshal(collectionConf(mid))
	if err != nil {
		return nil, err
	}
	dconf, err := json.Marshal(deckConf())
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		INSERT INTO col (id, crt, mod, scm, ver, dty, usn, ls, conf, models, decks, dconf, tags)
		VALUES (1, ?, ?, ?, 11, 0, 0, 0, ?, ?, ?, ?, '{}')`,
		now.Unix(), now.UnixMilli(), now.UnixMilli(), conf, models, decks, dconf,
	)
	if err != nil {
		return nil, err
	}

	var media []string
	seen := make(map[string]bool)
	addMedia := func(path string) {
		if path == "" || seen[path] {
			return
		}
		seen[path] = true
		media = append(media, path)
	}

	baseID := now.UnixMilli()
	for i, c := range cardList {
		audioField := fmt.Sprintf("[sound:%s]", filepath.Base(c.AudioPath))
		imageField := ""
		if c.ImagePath != "" {
			imageField = fmt.Sprintf("<img src=%q>", filepath.Base(c.ImagePath))
		}
		flds := audioField + "\x1f" + imageField + "\x1f" + c.Sentence

		noteID := baseID + int64(i)
		_, err := db.Exec(`
			INSERT INTO notes (id, guid, mid, mod, usn, tags, flds, sfld, csum, flags, data)
			VALUES (?, ?, ?, ?, -1, '', ?, ?, ?, 0, '')`,
			noteID, newGUID(), mid, now.Unix(), flds, audioField, fieldChecksum(audioField),
		)
		if err != nil {
			return nil, fmt.Errorf("insert note %d: %w", i, err)
		}

		_, err = db.Exec(`
			INSERT INTO cards (id, nid, did, ord, mod, usn, type, queue, due, ivl,
				factor, reps, lapses, left, odue, odid, flags, data)
			VALUES (?, ?, ?, 0, ?, -1, 0, 0, ?, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
			baseID+int64(len(cardList)+i), noteID, did, now.Unix(), i+1,
		)
		if err != nil {
			return nil, fmt.Errorf("insert card %d: %w", i, err)
		}

		addMedia(c.AudioPath)
		addMedia(c.ImagePath)
	}

	return media, nil
}

// writeArchive zips the collection and media files. Media entries are named
// by index with a manifest mapping indexes back to filenames, as the apkg
// format requires.
func writeArchive(outPath, collectionPath string, media []string) error {
	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)

	if err := addFile(zw, "collection.anki2", collectionPath); err != nil {
		return err
	}

	manifest := make(map[string]string, len(media))
	for i, path := range media {
		name := strconv.Itoa(i)
		manifest[name] = filepath.Base(path)
		if err := addFile(zw, name, path); err != nil {
			return err
		}
	}

	manifestJSON, err := json.Marshal(manifest)
	if err != nil {
		return err
	}
	w, err := zw.Create("media")
	if err != nil {
		return err
	}
	if _, err := w.Write(manifestJSON); err != nil {
		return err
	}

	return zw.Close()
}

func addFile(zw *zip.Writer, name, path string) error {
	src, err := os.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, src)
	return err
}

// fieldChecksum is the integer form of the first 8 hex digits of the sort
// field's SHA1, matching Anki's duplicate detection.
func fieldChecksum(field string) int64 {
	sum := sha1.Sum([]byte(field))
	n, _ := strconv.ParseInt(fmt.Sprintf("%x", sum[:4]), 16, 64)
	return n
}

const guidChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newGUID() string {
	var b [10]byte
	rand.Read(b[:])
	for i := range b {
		b[i] = guidChars[int(b[i])%len(guidChars)]
	}
	return string(b[:])
}
