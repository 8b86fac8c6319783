package engine

import "time"

// requireWritable is the common guard every mutating call in this file
// starts with.
func (d *Dbf) requireWritable() *Error {
	if d.readOnly {
		return newError(KindFileWrite, "%s: read-only", d.f.name)
	}
	return nil
}

func (d *Dbf) requireCurrent() *Error {
	if d.bof || d.eof {
		return newError(KindInvalidRecord, "no current record")
	}
	return nil
}

// touchHeader rewrites the 32-byte header in place, used whenever
// recordCount or the last-update stamp changes.
func (d *Dbf) touchHeader() *Error {
	y, m, dd := time.Now().Date()
	d.header.updateYear = byte(y % 100)
	d.header.updateMonth = byte(m)
	d.header.updateDay = byte(dd)
	buf := make([]byte, headerFixedSize)
	d.header.encode(buf)
	return d.f.writeAt(0, buf)
}

// AppendBlank writes a new blank active record at the end of the file
// and moves the cursor onto it.
func (d *Dbf) AppendBlank() *Error {
	if err := d.requireWritable(); err != nil {
		return err
	}
	if d.modified {
		if err := d.flushCurrent(); err != nil {
			return err
		}
	}
	newRecno := d.header.recordCount + 1
	blank := make([]byte, d.header.recordSize)
	blank[0] = ' '
	for _, fd := range d.fields {
		blankField(blank, fd)
	}
	if err := d.f.writeAt(d.recordOffset(newRecno), blank); err != nil {
		return err
	}
	// trailing EOF marker moves one slot further out
	if err := d.f.writeAt(d.recordOffset(newRecno)+int64(d.header.recordSize), []byte{eofMarker}); err != nil {
		return err
	}
	d.header.recordCount = newRecno
	if err := d.touchHeader(); err != nil {
		return err
	}
	copy(d.record, blank)
	d.current = newRecno
	d.bof, d.eof, d.deleted, d.modified = false, false, false, false
	return nil
}

// Delete soft-deletes the current record (byte 0 := '*').
func (d *Dbf) Delete() *Error {
	if err := d.requireWritable(); err != nil {
		return err
	}
	if err := d.requireCurrent(); err != nil {
		return err
	}
	d.record[0] = '*'
	d.deleted, d.modified = true, true
	return nil
}

// Recall clears the current record's delete marker.
func (d *Dbf) Recall() *Error {
	if err := d.requireWritable(); err != nil {
		return err
	}
	if err := d.requireCurrent(); err != nil {
		return err
	}
	d.record[0] = ' '
	d.deleted, d.modified = false, true
	return nil
}

// Flush writes the buffered current record if modified.
func (d *Dbf) Flush() *Error {
	if !d.modified {
		return nil
	}
	if err := d.flushCurrent(); err != nil {
		return err
	}
	return d.f.flush()
}

// MarkModified flags the in-memory buffer as dirty; field Put
// operations call this after writing into the record.
func (d *Dbf) MarkModified() { d.modified = true }

// Pack rewrites the file keeping only non-deleted records, densely
// renumbered from 1, and repositions to record 1.
func (d *Dbf) Pack() (survivors uint32, rerr *Error) {
	if err := d.requireWritable(); err != nil {
		return 0, err
	}
	if d.modified {
		if err := d.flushCurrent(); err != nil {
			return 0, err
		}
	}
	total := d.header.recordCount
	scratch := make([]byte, d.header.recordSize)
	dest := uint32(0)
	for src := uint32(1); src <= total; src++ {
		if _, err := d.f.readAt(d.recordOffset(src), scratch); err != nil {
			return dest, err
		}
		if scratch[0] == '*' {
			continue
		}
		dest++
		if dest != src {
			if err := d.f.writeAt(d.recordOffset(dest), scratch); err != nil {
				return dest, err
			}
		}
	}
	if err := d.f.writeAt(d.recordOffset(dest+1), []byte{eofMarker}); err != nil {
		return dest, err
	}
	d.header.recordCount = dest
	if err := d.touchHeader(); err != nil {
		return dest, err
	}
	if err := d.Top(); err != nil {
		return dest, err
	}
	return dest, nil
}

// Zap discards every record, leaving an empty table.
func (d *Dbf) Zap() *Error {
	if err := d.requireWritable(); err != nil {
		return err
	}
	d.header.recordCount = 0
	if err := d.touchHeader(); err != nil {
		return err
	}
	if err := d.f.writeAt(int64(d.header.headerSize), []byte{eofMarker}); err != nil {
		return err
	}
	return d.Goto(0)
}
