package pkgfile_test

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/pkgfile"
	"pkgbatch/internal/pkgfile/pkgfiletest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gameID = "UP9000-PCSE00001_00-0000000000000000"

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := pkgfiletest.Write(t, dir, "x.pkg", pkgfiletest.Package{Title: "Gravity Rush", ContentID: gameID})

	info, err := pkgfile.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Gravity Rush", info.Title)
	assert.Equal(t, gameID, info.ContentID)
	assert.Equal(t, "PCSE00001", info.ID())
	assert.Equal(t, "USA", info.Region)
	assert.False(t, info.DLC)
	assert.Equal(t, "Gravity Rush [PCSE00001] [USA].pkg", info.FileName())
}

func TestReadShortTitleWins(t *testing.T) {
	data := pkgfiletest.Build(pkgfiletest.Package{Title: "Long Title", STitle: "Short", ContentID: gameID})
	info, err := pkgfile.Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.Equal(t, "Short", info.Title)
}

func TestReadDLC(t *testing.T) {
	data := pkgfiletest.Build(pkgfiletest.Package{
		Title:       "Extra: Pack",
		ContentID:   "EP9000-PCSF00002_00-ADDON00000000000",
		ContentType: 0x16,
	})
	info, err := pkgfile.Read(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	assert.True(t, info.DLC)
	assert.Equal(t, "Extra - Pack [PCSF00002] [EUR] [DLC].pkg", info.FileName())
}

func TestReadInvalid(t *testing.T) {
	valid := pkgfiletest.Build(pkgfiletest.Package{Title: "T", ContentID: gameID})

	badMagic := append([]byte(nil), valid...)
	badMagic[0] = 0

	badSFO := append([]byte(nil), valid...)
	badSFO[pkgfiletest.SFOOffset()] = 'X'

	hugeSFO := append([]byte(nil), valid...)
	binary.BigEndian.PutUint32(hugeSFO[256+28:], 32*1024)

	sfoSized := func(n uint32) []byte {
		data := append([]byte(nil), valid...)
		binary.BigEndian.PutUint32(data[256+28:], n)
		return data
	}

	badKeyOffset := append([]byte(nil), valid...)
	binary.LittleEndian.PutUint32(badKeyOffset[pkgfiletest.SFOOffset()+8:], 0xFFFF0000)

	tests := []struct {
		name string
		data []byte
		msg  string
	}{
		{"empty", nil, "not a pkg file"},
		{"truncated header", valid[:100], "not a pkg file"},
		{"bad magic", badMagic, "not a pkg file"},
		{"truncated body", valid[:len(valid)-4], "too small"},
		{"bad sfo signature", badSFO, "incorrect sfo signature"},
		{"sfo too big", hugeSFO, "too big"},
		{"sfo too small", sfoSized(8), "too small"},
		{"sfo of 16 bytes", sfoSized(16), "too small"},
		{"sfo of 19 bytes", sfoSized(19), "too small"},
		{"sfo header without entries", sfoSized(20), "too small"},
		{"key out of range", badKeyOffset, "out of range"},
		{"missing content id", pkgfiletest.Build(pkgfiletest.Package{Title: "T"}), "doesn't have game title or content id"},
		{"missing title", pkgfiletest.Build(pkgfiletest.Package{ContentID: gameID}), "doesn't have game title or content id"},
		{"short content id", pkgfiletest.Build(pkgfiletest.Package{Title: "T", ContentID: "UP9000"}), "too short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := pkgfile.Read(bytes.NewReader(tt.data), int64(len(tt.data)))
			require.Error(t, err)
			assert.True(t, errors.IsInvalidPackage(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestReadFileErrors(t *testing.T) {
	_, err := pkgfile.ReadFile(filepath.Join(t.TempDir(), "missing.pkg"))
	require.Error(t, err)
	assert.Equal(t, errors.FileNotFound, errors.KindOf(err))

	path := filepath.Join(t.TempDir(), "junk.pkg")
	require.NoError(t, os.WriteFile(path, []byte("junk"), 0o644))
	_, err = pkgfile.ReadFile(path)
	assert.True(t, errors.IsInvalidPackage(err))
	assert.Contains(t, err.Error(), path)
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Plain Title", "Plain Title"},
		{"Game: Subtitle", "Game - Subtitle"},
		{"Line\nBreak", "Line Break"},
		{`a<b>c"d/e\f|g?h*i`, "abcdefghi"},
		{"tab\there\x01\xe2\x84\xa2", "tabhere"},
		{strings.Repeat("x", 300), strings.Repeat("x", 255)},
		{strings.Repeat(":", 200), strings.Repeat(" -", 128)},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, pkgfile.SanitizeTitle(tt.in), "input %q", tt.in)
	}
}

func TestRegion(t *testing.T) {
	tests := map[string]string{
		"PCSE00001": "USA",
		"PCSA00001": "USA",
		"PCSF00001": "EUR",
		"PCSB00001": "EUR",
		"PCSC00001": "JPN",
		"VCJS00001": "JPN",
		"PCSG00001": "JPN",
		"VLJS00001": "JPN",
		"VLJM00001": "JPN",
		"VCAS00001": "ASA",
		"PCSH00001": "ASA",
		"VLAS00001": "ASA",
		"PCSD00001": "ASA",
		"NPXS00001": "unknown region",
		"PC":        "unknown region",
	}
	for id, want := range tests {
		assert.Equal(t, want, pkgfile.Region(id), id)
	}
}

func TestRename(t *testing.T) {
	dir := t.TempDir()
	path := pkgfiletest.Write(t, dir, "download.pkg", pkgfiletest.Package{Title: "Game", ContentID: gameID})
	want := filepath.Join(dir, "Game [PCSE00001] [USA].pkg")

	got, err := pkgfile.Rename(path, true)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.FileExists(t, path, "dry run leaves the file alone")

	got, err = pkgfile.Rename(path, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.FileExists(t, want)
	assert.NoFileExists(t, path)

	// Already canonical.
	got, err = pkgfile.Rename(want, false)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRenameRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	pkg := pkgfiletest.Package{Title: "Game", ContentID: gameID}
	path := pkgfiletest.Write(t, dir, "a.pkg", pkg)
	pkgfiletest.Write(t, dir, "Game [PCSE00001] [USA].pkg", pkg)

	_, err := pkgfile.Rename(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
	assert.FileExists(t, path)
}
