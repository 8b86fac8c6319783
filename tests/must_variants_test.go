package tests

import (
	"testing"

	"github.com/mkfoss/xbase3"
)

func TestMustRunPanicsOnBadCommand(t *testing.T) {
	db := xbase3.New(t.TempDir())
	defer db.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRun should have panicked on a malformed command")
		}
	}()
	db.MustRun("THIS IS NOT A COMMAND @@@")
}

func TestMustRunPanicsOnMissingDatabase(t *testing.T) {
	db := xbase3.New(t.TempDir())
	defer db.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustRun should have panicked with no database open")
		}
	}()
	db.MustRun("SKIP")
}

func TestMustSkipPanicsWithoutOpenDatabase(t *testing.T) {
	db := xbase3.New(t.TempDir())
	defer db.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustSkip should have panicked without an open database")
		}
	}()
	db.MustSkip(1)
}

func TestMustGotoPanicsWithoutOpenDatabase(t *testing.T) {
	db := xbase3.New(t.TempDir())
	defer db.Close()

	defer func() {
		if r := recover(); r == nil {
			t.Error("MustGoto should have panicked without an open database")
		}
	}()
	db.MustGoto(1)
}

func TestMustGotoPastEndReachesEOF(t *testing.T) {
	db := createPeople(t, t.TempDir())
	defer db.Close()

	db.MustGoto(999)
	if !db.EOF() {
		t.Error("MustGoto past the last record should leave the cursor at EOF")
	}
}

func TestMustVariantsSucceedAgainstOpenDatabase(t *testing.T) {
	db := createPeople(t, t.TempDir())
	defer db.Close()

	db.MustGoto(1)
	if db.RecNo() != 1 {
		t.Fatalf("RecNo() = %d, want 1", db.RecNo())
	}
	db.MustSkip(1)
	if db.RecNo() != 2 {
		t.Fatalf("RecNo() = %d, want 2", db.RecNo())
	}
	db.MustRun("REPLACE NAME WITH \"EDITED\"")
	if got := db.Field("NAME"); got == "" {
		t.Error("expected REPLACE via MustRun to take effect")
	}
}
