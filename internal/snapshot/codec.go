// Package snapshot serializes draft content into the two artifact formats
// the release pipeline publishes: per-locale JSON snapshot files served
// through the CDN, and one gzip-compressed backup blob that rollback
// replays to reconstruct the languages and translations tables.
package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
)

// Row is one translation row in recovery format. Field names match the
// on-disk backup schema; Language holds the locale.
type Row struct {
	Key      string `json:"key"`
	Language string `json:"language"`
	Value    string `json:"value"`
}

// BackupPayload is the decoded recovery blob: raw per-language row lists
// with no fallback applied, plus the locale that was default at encode
// time. Older blobs predate DefaultLocale; see DecodeBackup.
type BackupPayload struct {
	DefaultLocale string  `json:"defaultLocale"`
	Languages     [][]Row `json:"languages"`
}

// backupEnvelope is the versioned on-disk form.
type backupEnvelope struct {
	Version       int     `json:"version"`
	DefaultLocale string  `json:"defaultLocale"`
	Languages     [][]Row `json:"languages"`
}

const backupFormatVersion = 2

// File is one generated snapshot artifact, named {versionId}/{locale}.json.
type File struct {
	Name    string
	Content []byte
}

// EncodeLocaleSnapshot renders rows as a canonical key->value JSON object.
// json.Marshal sorts map keys, so identical content always produces
// identical bytes regardless of row order.
func EncodeLocaleSnapshot(rows []Row) ([]byte, error) {
	m := make(map[string]string, len(rows))
	for _, row := range rows {
		m[row.Key] = row.Value
	}
	return encodeLocaleMap(m)
}

func encodeLocaleMap(m map[string]string) ([]byte, error) {
	return json.Marshal(m)
}

// BuildLocaleFiles generates one snapshot file per locale. The default
// locale's map is taken as is; every other locale starts from the default
// map and overlays its own pairs, so a missing translation silently falls
// back to the default value and the public endpoint never serves a gap.
func BuildLocaleFiles(versionID int64, defaultLocale string, defaultRows []Row, others map[string][]Row) ([]File, error) {
	if defaultLocale == "" {
		return nil, fmt.Errorf("snapshot: missing default locale")
	}

	defaultMap := make(map[string]string, len(defaultRows))
	for _, row := range defaultRows {
		defaultMap[row.Key] = row.Value
	}

	files := make([]File, 0, len(others)+1)

	content, err := encodeLocaleMap(defaultMap)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode %s: %w", defaultLocale, err)
	}
	files = append(files, File{Name: SnapshotPath(versionID, defaultLocale), Content: content})

	for locale, rows := range others {
		merged := make(map[string]string, len(defaultMap))
		for k, v := range defaultMap {
			merged[k] = v
		}
		for _, row := range rows {
			merged[row.Key] = row.Value
		}
		content, err := encodeLocaleMap(merged)
		if err != nil {
			return nil, fmt.Errorf("snapshot: encode %s: %w", locale, err)
		}
		files = append(files, File{Name: SnapshotPath(versionID, locale), Content: content})
	}
	return files, nil
}

// SnapshotPath is the artifact key for a published per-locale snapshot.
func SnapshotPath(versionID int64, locale string) string {
	return fmt.Sprintf("%d/%s.json", versionID, locale)
}

// BackupPath is the artifact key for a version's recovery blob.
func BackupPath(versionID int64) string {
	return fmt.Sprintf("%d/backup.gz", versionID)
}

// EncodeBackup serializes the payload as versioned JSON and gzips it.
func EncodeBackup(payload BackupPayload) ([]byte, error) {
	env := backupEnvelope{
		Version:       backupFormatVersion,
		DefaultLocale: payload.DefaultLocale,
		Languages:     payload.Languages,
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal backup: %w", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		return nil, fmt.Errorf("snapshot: compress backup: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: compress backup: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeBackup decompresses and parses a backup blob. Two shapes exist on
// disk: the current versioned envelope, and a legacy bare array of
// per-language row lists that may contain empty sub-lists and carries no
// default-locale tag. Legacy blobs get empty lists filtered out and the
// first locale in list order as default.
func DecodeBackup(b []byte) (*BackupPayload, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("snapshot: backup is not gzip: %w", err)
	}
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompress backup: %w", err)
	}
	if err := zr.Close(); err != nil {
		return nil, fmt.Errorf("snapshot: decompress backup: %w", err)
	}

	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("snapshot: empty backup")
	}

	var payload BackupPayload
	switch trimmed[0] {
	case '{':
		var env backupEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("snapshot: parse backup: %w", err)
		}
		payload = BackupPayload{DefaultLocale: env.DefaultLocale, Languages: env.Languages}
	case '[':
		var lists [][]Row
		if err := json.Unmarshal(raw, &lists); err != nil {
			return nil, fmt.Errorf("snapshot: parse legacy backup: %w", err)
		}
		// Legacy blobs could hold empty sub-arrays for languages with no
		// rows; drop them here so downstream code never sees them.
		filtered := make([][]Row, 0, len(lists))
		for _, list := range lists {
			if len(list) == 0 {
				continue
			}
			filtered = append(filtered, list)
		}
		payload = BackupPayload{Languages: filtered}
	default:
		return nil, fmt.Errorf("snapshot: unrecognized backup shape")
	}

	if payload.DefaultLocale == "" {
		for _, list := range payload.Languages {
			if len(list) > 0 {
				payload.DefaultLocale = list[0].Language
				break
			}
		}
	}
	if len(payload.Languages) == 0 {
		return nil, fmt.Errorf("snapshot: backup contains no languages")
	}
	return &payload, nil
}
