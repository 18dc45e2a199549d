package anki

import (
	"archive/zip"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ReadCardCount opens a .apkg archive and reports how many cards its
// collection holds.
func ReadCardCount(pkgPath string) (int, error) {
	zr, err := zip.OpenReader(pkgPath)
	if err != nil {
		return 0, fmt.Errorf("open package: %w", err)
	}
	defer zr.Close()

	var collection *zip.File
	for _, f := range zr.File {
		if f.Name == "collection.anki2" {
			collection = f
			break
		}
	}
	if collection == nil {
		return 0, errors.New("package has no collection")
	}

	// sqlite wants a real file.
	tmpDir, err := os.MkdirTemp("", "apkg-read-*")
	if err != nil {
		return 0, err
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "collection.anki2")
	if err := extractTo(collection, dbPath); err != nil {
		return 0, err
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return 0, err
	}
	defer db.Close()

	var count int
	if err := db.QueryRow("SELECT COUNT(*) FROM cards").Scan(&count); err != nil {
		return 0, fmt.Errorf("count cards: %w", err)
	}
	return count, nil
}

func extractTo(f *zip.File, dst string) error {
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, src)
	return err
}
