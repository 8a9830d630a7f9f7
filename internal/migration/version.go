package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

var errNoMigrations = errors.New("no embedded migrations found")

type upFile struct {
	name    string
	version uint
}

// upFiles lists the embedded *.up.sql files ordered by version. Every file
// must carry a numeric version prefix.
func upFiles() ([]upFile, error) {
	entries, err := fs.ReadDir(embeddedMigrations, migrationsDir)
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	var files []upFile
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}
		version, ok := parseMigrationVersion(entry.Name())
		if !ok {
			return nil, fmt.Errorf("invalid migration filename: %s", entry.Name())
		}
		files = append(files, upFile{name: entry.Name(), version: version})
	}
	if len(files) == 0 {
		return nil, errNoMigrations
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

// LatestMigrationVersion is the version the schema must reach after Up.
func LatestMigrationVersion() (uint, error) {
	files, err := upFiles()
	if err != nil {
		return 0, err
	}
	return files[len(files)-1].version, nil
}

// MigrationsChecksum fingerprints the embedded up migrations so deployments
// can tell whether two binaries ship the same schema.
func MigrationsChecksum() (string, error) {
	files, err := upFiles()
	if err != nil {
		return "", err
	}

	h := sha256.New()
	for _, f := range files {
		content, err := embeddedMigrations.ReadFile(path.Join(migrationsDir, f.name))
		if err != nil {
			return "", fmt.Errorf("read migration %s: %w", f.name, err)
		}
		fmt.Fprintf(h, "%s\x00%d\x00", f.name, len(content))
		h.Write(content)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// parseMigrationVersion reads the leading digits of "0001_name.up.sql".
func parseMigrationVersion(name string) (uint, bool) {
	prefix, _, found := strings.Cut(name, "_")
	if !found || prefix == "" {
		return 0, false
	}
	v, err := strconv.ParseUint(prefix, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(v), true
}
