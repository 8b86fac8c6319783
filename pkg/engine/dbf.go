package engine

import (
	"encoding/binary"
	"path/filepath"
	"strings"
	"time"
)

const (
	versionPlain      = 0x03
	versionMemo       = 0x83
	headerFixedSize   = 32
	fieldDescSize     = 32
	terminatorByte    = 0x0D
	eofMarker         = 0x1A
	maxFieldsPerTable = maxFields
)

// dbfHeader is the 32-byte fixed portion of a DBF file, decoded in
// native fields for ease of manipulation; encode/decode translate to
// and from the little-endian wire layout on disk.
type dbfHeader struct {
	version     byte
	updateYear  byte
	updateMonth byte
	updateDay   byte
	recordCount uint32
	headerSize  uint16
	recordSize  uint16
}

func decodeDbfHeader(b []byte) dbfHeader {
	return dbfHeader{
		version:     b[0],
		updateYear:  b[1],
		updateMonth: b[2],
		updateDay:   b[3],
		recordCount: binary.LittleEndian.Uint32(b[4:8]),
		headerSize:  binary.LittleEndian.Uint16(b[8:10]),
		recordSize:  binary.LittleEndian.Uint16(b[10:12]),
	}
}

func (h dbfHeader) encode(b []byte) {
	b[0] = h.version
	b[1] = h.updateYear
	b[2] = h.updateMonth
	b[3] = h.updateDay
	binary.LittleEndian.PutUint32(b[4:8], h.recordCount)
	binary.LittleEndian.PutUint16(b[8:10], h.headerSize)
	binary.LittleEndian.PutUint16(b[10:12], h.recordSize)
	for i := 12; i < headerFixedSize; i++ {
		b[i] = 0
	}
}

func decodeFieldDesc(b []byte, offset int) FieldDef {
	nameEnd := 0
	for nameEnd < maxFieldNameLen && b[nameEnd] != 0 {
		nameEnd++
	}
	return FieldDef{
		Name:     strings.ToUpper(string(b[:nameEnd])),
		Type:     FieldType(b[11]),
		Length:   int(b[16]),
		Decimals: int(b[17]),
		Offset:   offset,
	}
}

func encodeFieldDesc(b []byte, f FieldDef) {
	for i := range b {
		b[i] = 0
	}
	copy(b[0:maxFieldNameLen], f.Name)
	b[11] = byte(f.Type)
	b[16] = byte(f.Length)
	b[17] = byte(f.Decimals)
}

// Dbf is an open .dbf file: its schema plus the single record-buffer
// cursor the session navigates through it.
type Dbf struct {
	f          *file
	header     dbfHeader
	fields     []FieldDef
	fieldIndex map[string]int
	alias      string
	readOnly   bool

	record   []byte
	current  uint32
	deleted  bool
	modified bool
	bof      bool
	eof      bool
}

// Alias returns the DBF's attached name, upper-cased.
func (d *Dbf) Alias() string { return d.alias }

// SetAlias overrides the derived alias (USE ... ALIAS name).
func (d *Dbf) SetAlias(alias string) { d.alias = strings.ToUpper(alias) }

// NumFields returns the schema's field count.
func (d *Dbf) NumFields() int { return len(d.fields) }

// Field returns the j'th field descriptor (0-based).
func (d *Dbf) Field(j int) (FieldDef, *Error) {
	if j < 0 || j >= len(d.fields) {
		return FieldDef{}, newError(KindInvalidField, "field index %d out of range", j)
	}
	return d.fields[j], nil
}

// FieldNumber resolves a field name (case-insensitive) to its 0-based
// index, or -1 if the schema has no such field.
func (d *Dbf) FieldNumber(name string) int {
	if idx, ok := d.fieldIndex[strings.ToUpper(name)]; ok {
		return idx
	}
	return -1
}

// RecordCount returns the header's current record count.
func (d *Dbf) RecordCount() uint32 { return d.header.recordCount }

// RecNo returns the 1-based current record number (0 == BOF).
func (d *Dbf) RecNo() uint32 { return d.current }

// Bof / Eof report the cursor's boundary state.
func (d *Dbf) Bof() bool { return d.bof }
func (d *Dbf) Eof() bool { return d.eof }

// Deleted reports whether the buffered current record carries the
// soft-delete marker.
func (d *Dbf) Deleted() bool { return d.deleted }

// Record returns the raw current record buffer, including the delete
// marker at offset 0.
func (d *Dbf) Record() []byte { return d.record }

func deriveAlias(path string) string {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	return strings.ToUpper(strings.TrimSuffix(base, ext))
}

// Open reads an existing DBF: header, field table, and positions the
// cursor on record 1 (or BOF/EOF if the table is empty).
func Open(path string, readOnly bool) (*Dbf, *Error) {
	full := withExtension(path, "dbf")
	f, ferr := openFile(full, readOnly)
	if ferr != nil {
		return nil, ferr
	}

	head := make([]byte, headerFixedSize)
	if _, err := f.readAt(0, head); err != nil {
		f.close()
		return nil, err
	}
	h := decodeDbfHeader(head)
	if h.version != versionPlain && h.version != versionMemo {
		f.close()
		return nil, newError(KindInvalidDbf, "%s: unrecognised version byte 0x%02x", full, h.version)
	}

	fieldTableLen := int(h.headerSize) - headerFixedSize - 1
	if fieldTableLen < 0 || fieldTableLen%fieldDescSize != 0 {
		f.close()
		return nil, newError(KindInvalidDbf, "%s: malformed header size", full)
	}
	n := fieldTableLen / fieldDescSize
	raw := make([]byte, fieldTableLen+1)
	if _, err := f.readAt(headerFixedSize, raw); err != nil {
		f.close()
		return nil, err
	}
	if raw[fieldTableLen] != terminatorByte {
		f.close()
		return nil, newError(KindInvalidDbf, "%s: missing field table terminator", full)
	}

	fields := make([]FieldDef, 0, n)
	fieldIndex := make(map[string]int, n)
	offset := 1
	for i := 0; i < n; i++ {
		fd := decodeFieldDesc(raw[i*fieldDescSize:(i+1)*fieldDescSize], offset)
		fields = append(fields, fd)
		fieldIndex[fd.Name] = i
		offset += fd.Length
	}
	if offset != int(h.recordSize) {
		f.close()
		return nil, newError(KindInvalidDbf, "%s: field lengths sum to %d, header declares record size %d", full, offset-1, h.recordSize)
	}

	d := &Dbf{
		f:          f,
		header:     h,
		fields:     fields,
		fieldIndex: fieldIndex,
		alias:      deriveAlias(full),
		readOnly:   readOnly,
		record:     make([]byte, h.recordSize),
	}
	if h.recordCount > 0 {
		if err := d.Goto(1); err != nil {
			f.close()
			return nil, err
		}
	} else {
		d.bof, d.eof, d.current = true, true, 0
		d.blankRecord()
	}
	return d, nil
}

// Create validates a field list and writes a brand-new empty DBF:
// header, field descriptors, terminator, trailing EOF marker.
func Create(path string, fields []FieldDef) (*Dbf, *Error) {
	if len(fields) < 1 || len(fields) > maxFieldsPerTable {
		return nil, newError(KindInvalidField, "field count %d out of range 1..%d", len(fields), maxFieldsPerTable)
	}
	full := withExtension(path, "dbf")

	recordSize := 1
	normalized := make([]FieldDef, len(fields))
	for i, raw := range fields {
		nf, err := normalizeField(raw.Name, raw.Type, raw.Length, raw.Decimals)
		if err != nil {
			return nil, err
		}
		nf.Offset = recordSize
		recordSize += nf.Length
		normalized[i] = nf
	}

	f, ferr := createFile(full, true)
	if ferr != nil {
		return nil, ferr
	}

	headerSize := headerFixedSize + len(normalized)*fieldDescSize + 1
	y, m, dd := time.Now().Date()
	h := dbfHeader{
		version:     versionPlain,
		updateYear:  byte(y % 100),
		updateMonth: byte(m),
		updateDay:   byte(dd),
		recordCount: 0,
		headerSize:  uint16(headerSize),
		recordSize:  uint16(recordSize),
	}

	buf := make([]byte, headerSize+1)
	h.encode(buf[:headerFixedSize])
	off := headerFixedSize
	for _, fd := range normalized {
		encodeFieldDesc(buf[off:off+fieldDescSize], fd)
		off += fieldDescSize
	}
	buf[off] = terminatorByte
	buf[off+1] = eofMarker

	if err := f.writeAt(0, buf); err != nil {
		f.close()
		return nil, err
	}
	if err := f.flush(); err != nil {
		f.close()
		return nil, err
	}

	fieldIndex := make(map[string]int, len(normalized))
	for i, fd := range normalized {
		fieldIndex[fd.Name] = i
	}

	d := &Dbf{
		f:          f,
		header:     h,
		fields:     normalized,
		fieldIndex: fieldIndex,
		alias:      deriveAlias(full),
		record:     make([]byte, recordSize),
		bof:        true,
		eof:        true,
	}
	d.blankRecord()
	return d, nil
}

// Close flushes a modified current record and releases the handle. A
// nil or already-closed Dbf is a safe no-op.
func (d *Dbf) Close() *Error {
	if d == nil || d.f == nil {
		return nil
	}
	if d.modified {
		if err := d.flushCurrent(); err != nil {
			return err
		}
	}
	err := d.f.close()
	d.f = nil
	return err
}

func (d *Dbf) blankRecord() {
	d.record[0] = ' '
	for _, fd := range d.fields {
		blankField(d.record, fd)
	}
	d.deleted = false
}

func (d *Dbf) recordOffset(recno uint32) int64 {
	return int64(d.header.headerSize) + int64(recno-1)*int64(d.header.recordSize)
}

// flushCurrent writes the buffered record back to its slot.
func (d *Dbf) flushCurrent() *Error {
	if d.current == 0 || d.current > d.header.recordCount {
		d.modified = false
		return nil
	}
	if d.readOnly {
		return newError(KindFileWrite, "%s: read-only", d.f.name)
	}
	if err := d.f.writeAt(d.recordOffset(d.current), d.record); err != nil {
		return err
	}
	d.modified = false
	return nil
}

// Goto repositions the cursor to record n, flushing a modified buffer
// first.
func (d *Dbf) Goto(n uint32) *Error {
	if d.modified {
		if err := d.flushCurrent(); err != nil {
			return err
		}
	}
	if n == 0 {
		d.current, d.bof, d.eof = 0, true, d.header.recordCount == 0
		d.blankRecord()
		return nil
	}
	if n > d.header.recordCount {
		d.current, d.bof, d.eof = n, false, true
		d.blankRecord()
		return nil
	}
	if _, err := d.f.readAt(d.recordOffset(n), d.record); err != nil {
		return err
	}
	d.current = n
	d.bof, d.eof = false, false
	d.deleted = d.record[0] == '*'
	d.modified = false
	return nil
}

// Skip moves delta records (negative allowed), saturating at 0 and at
// recordCount+1.
func (d *Dbf) Skip(delta int64) *Error {
	cur := int64(d.current)
	next := cur + delta
	if next < 0 {
		next = 0
	}
	max := int64(d.header.recordCount) + 1
	if next > max {
		next = max
	}
	return d.Goto(uint32(next))
}

// Top positions on record 1, or BOF/EOF together when the table is
// empty.
func (d *Dbf) Top() *Error {
	if d.header.recordCount == 0 {
		return d.Goto(0)
	}
	return d.Goto(1)
}

// Bottom positions on the last record, or BOF/EOF together when empty.
func (d *Dbf) Bottom() *Error {
	if d.header.recordCount == 0 {
		return d.Goto(0)
	}
	return d.Goto(d.header.recordCount)
}
