package migrations

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var nameRE = regexp.MustCompile(`^[a-z0-9_]+$`)

const upTemplate = "-- %s: write the forward migration here.\n"
const downTemplate = "-- %s: revert everything the up migration does.\n"

// NormalizeName lowercases name and replaces spaces with underscores.
func NormalizeName(name string) (string, error) {
	n := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
	if n == "" || !nameRE.MatchString(n) {
		return "", fmt.Errorf("invalid migration name %q: use letters, digits, spaces or underscores", name)
	}
	return n, nil
}

// NextVersion returns the next YYYYMMDD_NNNNNN version for day given the
// file names already present.
func NextVersion(existing []string, day time.Time) string {
	date := day.Format("20060102")
	prefix := date + "_"
	maxSerial := 0
	for _, f := range existing {
		rest, ok := strings.CutPrefix(f, prefix)
		if !ok {
			continue
		}
		serial, _, _ := strings.Cut(rest, "_")
		if n, err := strconv.Atoi(serial); err == nil && n > maxSerial {
			maxSerial = n
		}
	}
	return fmt.Sprintf("%s_%06d", date, maxSerial+1)
}

// Scaffold writes an empty up/down pair for name into dir and returns the
// created paths. Existing files are never overwritten.
func Scaffold(dir, name string, now time.Time) (string, string, error) {
	n, err := NormalizeName(name)
	if err != nil {
		return "", "", err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", "", fmt.Errorf("read migrations dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	stem := NextVersion(names, now) + "_" + n
	up := filepath.Join(dir, stem+".up.sql")
	down := filepath.Join(dir, stem+".down.sql")

	if err := writeNew(up, fmt.Sprintf(upTemplate, stem)); err != nil {
		return "", "", err
	}
	if err := writeNew(down, fmt.Sprintf(downTemplate, stem)); err != nil {
		_ = os.Remove(up)
		return "", "", err
	}
	return up, down, nil
}

func writeNew(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("migration file already exists: %s", path)
		}
		return err
	}
	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
