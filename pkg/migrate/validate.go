package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var sqlFileRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// Migrations run against postgres in production and sqlite in local and
// test setups, so constructs only one of them understands are rejected.
var nonPortable = []struct {
	re   *regexp.Regexp
	hint string
}{
	{regexp.MustCompile(`(?i)\bjsonb\b`), "use text for JSON payloads"},
	{regexp.MustCompile(`(?i)\b(big)?serial\b`), "ids are uuids assigned by the application"},
	{regexp.MustCompile(`(?i)\bgen_random_uuid\s*\(`), "ids are uuids assigned by the application"},
	{regexp.MustCompile(`::`), "casts are postgres only"},
	{regexp.MustCompile(`(?i)\bcreate\s+extension\b`), "extensions are postgres only"},
	{regexp.MustCompile(`(?i)\badd\s+constraint\b`), "sqlite cannot add constraints to existing tables"},
}

// File is one migration found on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// Scan lists the migrations in dir ordered by version. Every file must follow
// the goose naming and header conventions and stay portable across dialects.
func Scan(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := map[int64]string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		m := sqlFileRe.FindStringSubmatch(e.Name())
		if m == nil {
			return nil, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", e.Name())
		}
		version, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("migration %q: %w", e.Name(), err)
		}
		if prev, ok := byVersion[version]; ok {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", version, prev, e.Name())
		}
		byVersion[version] = e.Name()

		path := filepath.Join(dir, e.Name())
		if err := checkContents(path); err != nil {
			return nil, err
		}
		files = append(files, File{Version: version, Name: m[2], Path: path})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir reports the first problem Scan finds. An empty directory is valid.
func ValidateDir(dir string) error {
	_, err := Scan(dir)
	return err
}

func checkContents(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	name := filepath.Base(path)
	txt := string(raw)

	up := strings.Index(txt, "-- +goose Up")
	down := strings.Index(txt, "-- +goose Down")
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Up\"", name)
	case down < 0:
		return fmt.Errorf("migration %q missing \"-- +goose Down\"", name)
	case down < up:
		return fmt.Errorf("migration %q has Down before Up", name)
	}
	if b, e := strings.Count(txt, "-- +goose StatementBegin"), strings.Count(txt, "-- +goose StatementEnd"); b != e {
		return fmt.Errorf("migration %q has %d StatementBegin and %d StatementEnd markers", name, b, e)
	}

	for lineNo, line := range strings.Split(txt, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		for _, rule := range nonPortable {
			if rule.re.MatchString(line) {
				return fmt.Errorf("migration %q line %d is not portable: %s", name, lineNo+1, rule.hint)
			}
		}
	}
	return nil
}
