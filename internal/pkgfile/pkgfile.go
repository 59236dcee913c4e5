// Package pkgfile reads the metadata of PlayStation Vita PKG files and
// derives the canonical "Title [ID] [REGION].pkg" file name from it.
//
// Layout references:
// http://www.psdevwiki.com/ps3/PKG_files
// http://vitadevwiki.com/vita/System_File_Object_(SFO)_(PSF)
package pkgfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pkgbatch/internal/errors"
	"pkgbatch/internal/log"
)

const (
	headerSize    = 192
	headerExtSize = 64

	pkgMagic    = 0x7F504B47
	pkgExtMagic = 0x7F657874
	sfoMagic    = 0x46535000

	metaContentType = 2
	metaSFO         = 14

	contentTypeDLC = 0x16

	sfoHeaderSize = 20
	maxSFOSize    = 16 * 1024
	maxTitleLen   = 255
	idLen         = 9
	idOffset      = 7
)

// Info is the metadata a package is renamed from.
type Info struct {
	Title     string
	ContentID string
	Region    string
	DLC       bool
	Size      int64
}

// ID returns the title id part of the content id, e.g. "PCSE00001" for
// "UP0001-PCSE00001_00-0000000000000000".
func (i Info) ID() string {
	if len(i.ContentID) <= idOffset {
		return ""
	}
	id := i.ContentID[idOffset:]
	if len(id) > idLen {
		id = id[:idLen]
	}
	return id
}

// FileName returns the canonical file name for the package.
func (i Info) FileName() string {
	if i.DLC {
		return fmt.Sprintf("%s [%s] [%s] [DLC].pkg", i.Title, i.ID(), i.Region)
	}
	return fmt.Sprintf("%s [%s] [%s].pkg", i.Title, i.ID(), i.Region)
}

func invalid(format string, args ...interface{}) error {
	return errors.NewFileError(fmt.Sprintf(format, args...), "", errors.InvalidPackage, nil)
}

// ReadFile reads the metadata of the package at path.
func ReadFile(path string) (Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return Info{}, errors.NewFileError("cannot open package", path, errors.FileNotFound, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return Info{}, errors.NewFileError("cannot stat package", path, errors.FileAccessDenied, err)
	}

	info, err := Read(f, st.Size())
	if err != nil {
		return Info{}, errors.NewFileError("invalid package", path, errors.InvalidPackage, err)
	}
	return info, nil
}

// Read parses the package header, meta blocks and SFO of a package of the
// given size.
func Read(r io.ReaderAt, size int64) (Info, error) {
	var hdr [headerSize + headerExtSize]byte
	if err := readAt(r, hdr[:], 0); err != nil {
		return Info{}, invalid("not a pkg file")
	}
	if binary.BigEndian.Uint32(hdr[0:]) != pkgMagic || binary.BigEndian.Uint32(hdr[headerSize:]) != pkgExtMagic {
		return Info{}, invalid("not a pkg file")
	}

	var (
		metaOffset = uint64(binary.BigEndian.Uint32(hdr[8:]))
		metaCount  = binary.BigEndian.Uint32(hdr[12:])
		itemCount  = uint64(binary.BigEndian.Uint32(hdr[20:]))
		totalSize  = binary.BigEndian.Uint64(hdr[24:])
		encOffset  = binary.BigEndian.Uint64(hdr[32:])
	)
	if uint64(size) < totalSize || uint64(size) < encOffset+itemCount*32 {
		return Info{}, invalid("pkg file is too small")
	}

	var (
		contentType uint32
		sfoOffset   uint32
		sfoSize     uint32
	)
	for i := uint32(0); i < metaCount; i++ {
		var block [16]byte
		if err := readAt(r, block[:], int64(metaOffset)); err != nil {
			return Info{}, invalid("meta block %d is out of range", i)
		}
		typ := binary.BigEndian.Uint32(block[0:])
		blockSize := binary.BigEndian.Uint32(block[4:])
		switch typ {
		case metaContentType:
			contentType = binary.BigEndian.Uint32(block[8:])
		case metaSFO:
			sfoOffset = binary.BigEndian.Uint32(block[8:])
			sfoSize = binary.BigEndian.Uint32(block[12:])
		}
		metaOffset += 8 + uint64(blockSize)
	}

	title, contentID, err := readSFO(r, int64(sfoOffset), sfoSize)
	if err != nil {
		return Info{}, err
	}

	info := Info{
		Title:     title,
		ContentID: contentID,
		DLC:       contentType == contentTypeDLC,
		Size:      size,
	}
	if len(contentID) <= idOffset {
		return Info{}, invalid("content id %q is too short", contentID)
	}
	info.Region = Region(contentID[idOffset:])
	log.LogWithFields(log.F("content_id", contentID), log.F("content_type", contentType)).Debug("package metadata read")
	return info, nil
}

func readSFO(r io.ReaderAt, offset int64, size uint32) (title, contentID string, err error) {
	if size < sfoHeaderSize {
		return "", "", invalid("sfo information is too small")
	}
	if size > maxSFOSize {
		return "", "", invalid("sfo information is too big, pkg file is probably corrupted")
	}
	sfo := make([]byte, size)
	if err := readAt(r, sfo, offset); err != nil {
		return "", "", invalid("sfo information is out of range")
	}
	if binary.LittleEndian.Uint32(sfo) != sfoMagic {
		return "", "", invalid("incorrect sfo signature")
	}

	keys := uint64(binary.LittleEndian.Uint32(sfo[8:]))
	values := uint64(binary.LittleEndian.Uint32(sfo[12:]))
	count := binary.LittleEndian.Uint32(sfo[16:])

	titleIndex, contentIndex := -1, -1
	for i := uint32(0); i < count; i++ {
		entry := sfoHeaderSize + uint64(i)*16
		if entry+16 > uint64(size) {
			return "", "", invalid("sfo information is too small")
		}
		key, ok := cstring(sfo, keys+uint64(binary.LittleEndian.Uint16(sfo[entry:])))
		if !ok {
			return "", "", invalid("sfo key %d is out of range", i)
		}
		switch key {
		case "TITLE":
			if titleIndex < 0 {
				titleIndex = int(i)
			}
		case "STITLE":
			titleIndex = int(i)
		case "CONTENT_ID":
			contentIndex = int(i)
		}
	}
	if titleIndex < 0 || contentIndex < 0 {
		return "", "", invalid("sfo information doesn't have game title or content id, pkg is probably corrupted")
	}

	value := func(index int) (string, bool) {
		entry := sfoHeaderSize + uint64(index)*16
		return cstring(sfo, values+uint64(binary.LittleEndian.Uint32(sfo[entry+12:])))
	}
	rawTitle, ok := value(titleIndex)
	if !ok {
		return "", "", invalid("sfo title is out of range")
	}
	contentID, ok = value(contentIndex)
	if !ok {
		return "", "", invalid("sfo content id is out of range")
	}
	return SanitizeTitle(rawTitle), contentID, nil
}

// SanitizeTitle makes a title safe for use in a file name. It reads at
// most 255 bytes, keeps printable ASCII except <>"/\|?*, turns ':' into
// " -" (which costs one byte of the budget) and a newline into a space.
// Everything else is dropped.
func SanitizeTitle(raw string) string {
	var b strings.Builder
	limit := maxTitleLen
	for i := 0; i < limit && i < len(raw); i++ {
		c := raw[i]
		switch {
		case c >= 32 && c < 127 && !strings.ContainsRune(`<>"/\|?*`, rune(c)):
			if c == ':' {
				b.WriteString(" -")
				limit--
			} else {
				b.WriteByte(c)
			}
		case c == '\n':
			b.WriteByte(' ')
		}
	}
	return b.String()
}

// Region maps a title id to its release region.
func Region(id string) string {
	if len(id) < 4 {
		return "unknown region"
	}
	switch id[:4] {
	case "PCSE", "PCSA":
		return "USA"
	case "PCSF", "PCSB":
		return "EUR"
	case "PCSC", "VCJS", "PCSG", "VLJS", "VLJM":
		return "JPN"
	case "VCAS", "PCSH", "VLAS", "PCSD":
		return "ASA"
	default:
		return "unknown region"
	}
}

// Rename renames the package at path to its canonical name in the same
// directory and returns the new path. With dryRun set nothing is renamed.
// An existing file at the destination is never overwritten.
func Rename(path string, dryRun bool) (string, error) {
	info, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	dest := filepath.Join(filepath.Dir(path), info.FileName())
	if dryRun || dest == filepath.Clean(path) {
		return dest, nil
	}
	if _, err := os.Lstat(dest); err == nil {
		return "", errors.NewFileError("destination already exists", dest, errors.InvalidPath, nil)
	}
	if err := os.Rename(path, dest); err != nil {
		return "", errors.NewFileError("cannot rename package", path, errors.FileAccessDenied, err)
	}
	log.LogWithFields(log.F("from", path), log.F("to", dest)).Debug("package renamed")
	return dest, nil
}

func readAt(r io.ReaderAt, buf []byte, off int64) error {
	n, err := r.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if err == nil {
		err = io.ErrUnexpectedEOF
	}
	return err
}

// cstring returns the NUL-terminated string starting at off.
func cstring(buf []byte, off uint64) (string, bool) {
	if off >= uint64(len(buf)) {
		return "", false
	}
	s := buf[off:]
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s), true
}
