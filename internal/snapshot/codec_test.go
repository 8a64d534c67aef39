package snapshot

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"reflect"
	"testing"
)

func TestEncodeLocaleSnapshotDeterministic(t *testing.T) {
	rows := []Row{
		{Key: "home.title", Language: "en", Value: "Welcome"},
		{Key: "home.cta", Language: "en", Value: "Start"},
	}
	reversed := []Row{rows[1], rows[0]}

	a, err := EncodeLocaleSnapshot(rows)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	b, err := EncodeLocaleSnapshot(reversed)
	if err != nil {
		t.Fatalf("encode reversed: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("row order changed output:\n%s\n%s", a, b)
	}

	var got map[string]string
	if err := json.Unmarshal(a, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := map[string]string{"home.title": "Welcome", "home.cta": "Start"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBuildLocaleFilesFallback(t *testing.T) {
	defaultRows := []Row{
		{Key: "a", Language: "en", Value: "A"},
		{Key: "b", Language: "en", Value: "B"},
	}
	others := map[string][]Row{
		"fr": {{Key: "a", Language: "fr", Value: "Ah"}},
	}

	files, err := BuildLocaleFiles(7, "en", defaultRows, others)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files, want 2", len(files))
	}

	byName := map[string]map[string]string{}
	for _, f := range files {
		var m map[string]string
		if err := json.Unmarshal(f.Content, &m); err != nil {
			t.Fatalf("unmarshal %s: %v", f.Name, err)
		}
		byName[f.Name] = m
	}

	en, ok := byName["7/en.json"]
	if !ok {
		t.Fatalf("missing 7/en.json, have %v", files)
	}
	if !reflect.DeepEqual(en, map[string]string{"a": "A", "b": "B"}) {
		t.Fatalf("en snapshot = %v", en)
	}

	// fr is missing "b"; the file must carry the default value instead.
	fr, ok := byName["7/fr.json"]
	if !ok {
		t.Fatalf("missing 7/fr.json")
	}
	if !reflect.DeepEqual(fr, map[string]string{"a": "Ah", "b": "B"}) {
		t.Fatalf("fr snapshot = %v", fr)
	}
}

func TestBuildLocaleFilesRequiresDefaultLocale(t *testing.T) {
	if _, err := BuildLocaleFiles(1, "", nil, nil); err == nil {
		t.Fatal("expected error for empty default locale")
	}
}

func TestBackupRoundTrip(t *testing.T) {
	payload := BackupPayload{
		DefaultLocale: "en",
		Languages: [][]Row{
			{{Key: "a", Language: "en", Value: "A"}, {Key: "b", Language: "en", Value: "B"}},
			{{Key: "a", Language: "fr", Value: "Ah"}},
			{}, // a language with no rows yet must survive the round trip
		},
	}

	blob, err := EncodeBackup(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeBackup(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DefaultLocale != "en" {
		t.Fatalf("default locale = %q, want en", got.DefaultLocale)
	}
	if !reflect.DeepEqual(got.Languages, payload.Languages) {
		t.Fatalf("languages = %v, want %v", got.Languages, payload.Languages)
	}
}

func gzipJSON(t *testing.T, v any) []byte {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(raw); err != nil {
		t.Fatalf("gzip: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodeBackupLegacyArray(t *testing.T) {
	blob := gzipJSON(t, [][]Row{
		{{Key: "a", Language: "de", Value: "Ach"}},
		{}, // legacy blobs can hold empty sub-arrays; they must be dropped
		{{Key: "a", Language: "it", Value: "Ciao"}},
	})

	got, err := DecodeBackup(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got.Languages) != 2 {
		t.Fatalf("got %d language lists, want 2 (empty filtered)", len(got.Languages))
	}
	// No defaultLocale tag in the legacy shape; first list's locale wins.
	if got.DefaultLocale != "de" {
		t.Fatalf("default locale = %q, want de", got.DefaultLocale)
	}
}

func TestDecodeBackupLegacyLeadingEmptyList(t *testing.T) {
	blob := gzipJSON(t, [][]Row{
		{},
		{{Key: "x", Language: "pt", Value: "X"}},
	})
	got, err := DecodeBackup(blob)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.DefaultLocale != "pt" {
		t.Fatalf("default locale = %q, want pt", got.DefaultLocale)
	}
}

func TestDecodeBackupRejectsGarbage(t *testing.T) {
	if _, err := DecodeBackup([]byte("not gzip at all")); err == nil {
		t.Fatal("expected error for non-gzip input")
	}

	if _, err := DecodeBackup(gzipJSON(t, "just a string")); err == nil {
		t.Fatal("expected error for unrecognized shape")
	}

	if _, err := DecodeBackup(gzipJSON(t, [][]Row{})); err == nil {
		t.Fatal("expected error for backup with no languages")
	}
}

func TestArtifactPaths(t *testing.T) {
	if got := SnapshotPath(42, "en"); got != "42/en.json" {
		t.Fatalf("snapshot path = %q", got)
	}
	if got := BackupPath(42); got != "42/backup.gz" {
		t.Fatalf("backup path = %q", got)
	}
}
