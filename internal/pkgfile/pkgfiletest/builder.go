// Package pkgfiletest builds minimal synthetic PKG files for tests.
package pkgfiletest

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// Package describes the metadata written into a synthetic package.
type Package struct {
	Title       string
	STitle      string
	ContentID   string
	ContentType uint32
}

const (
	metaOffset = 256
	sfoOffset  = metaOffset + 32
)

// Build returns the bytes of a package carrying p's metadata.
func Build(p Package) []byte {
	sfo := buildSFO(p)
	size := sfoOffset + len(sfo)

	buf := make([]byte, size)
	binary.BigEndian.PutUint32(buf[0:], 0x7F504B47)
	binary.BigEndian.PutUint32(buf[8:], metaOffset)
	binary.BigEndian.PutUint32(buf[12:], 2)
	binary.BigEndian.PutUint64(buf[24:], uint64(size))
	binary.BigEndian.PutUint64(buf[32:], uint64(sfoOffset))
	binary.BigEndian.PutUint32(buf[192:], 0x7F657874)

	// content type block
	binary.BigEndian.PutUint32(buf[metaOffset:], 2)
	binary.BigEndian.PutUint32(buf[metaOffset+4:], 8)
	binary.BigEndian.PutUint32(buf[metaOffset+8:], p.ContentType)
	// sfo block
	binary.BigEndian.PutUint32(buf[metaOffset+16:], 14)
	binary.BigEndian.PutUint32(buf[metaOffset+20:], 8)
	binary.BigEndian.PutUint32(buf[metaOffset+24:], sfoOffset)
	binary.BigEndian.PutUint32(buf[metaOffset+28:], uint32(len(sfo)))

	copy(buf[sfoOffset:], sfo)
	return buf
}

// SFOOffset is where Build places the SFO section.
func SFOOffset() int {
	return sfoOffset
}

func buildSFO(p Package) []byte {
	type entry struct{ key, value string }
	var entries []entry
	if p.Title != "" {
		entries = append(entries, entry{"TITLE", p.Title})
	}
	if p.STitle != "" {
		entries = append(entries, entry{"STITLE", p.STitle})
	}
	if p.ContentID != "" {
		entries = append(entries, entry{"CONTENT_ID", p.ContentID})
	}

	var keys, values []byte
	keyOffsets := make([]int, len(entries))
	valueOffsets := make([]int, len(entries))
	for i, e := range entries {
		keyOffsets[i] = len(keys)
		keys = append(append(keys, e.key...), 0)
		valueOffsets[i] = len(values)
		values = append(append(values, e.value...), 0)
	}

	keyTable := 20 + 16*len(entries)
	valueTable := keyTable + len(keys)
	out := make([]byte, valueTable+len(values))
	binary.LittleEndian.PutUint32(out[0:], 0x46535000)
	binary.LittleEndian.PutUint32(out[4:], 0x0101)
	binary.LittleEndian.PutUint32(out[8:], uint32(keyTable))
	binary.LittleEndian.PutUint32(out[12:], uint32(valueTable))
	binary.LittleEndian.PutUint32(out[16:], uint32(len(entries)))
	for i, e := range entries {
		off := 20 + 16*i
		binary.LittleEndian.PutUint16(out[off:], uint16(keyOffsets[i]))
		binary.LittleEndian.PutUint16(out[off+2:], 0x0204)
		binary.LittleEndian.PutUint32(out[off+4:], uint32(len(e.value)+1))
		binary.LittleEndian.PutUint32(out[off+8:], uint32(len(e.value)+1))
		binary.LittleEndian.PutUint32(out[off+12:], uint32(valueOffsets[i]))
	}
	copy(out[keyTable:], keys)
	copy(out[valueTable:], values)
	return out
}

// Write writes a synthetic package named name into dir and returns its path.
func Write(t *testing.T, dir, name string, p Package) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(p), 0o644); err != nil {
		t.Fatalf("failed to write package %s: %v", path, err)
	}
	return path
}
