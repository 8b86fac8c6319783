package tests

import (
	"strings"
	"testing"

	"github.com/mkfoss/xbase3"
)

// createContacts builds a small table with three records out of
// alphabetical insertion order, so ordered traversal through an index
// actually exercises the B-tree instead of matching natural order by
// accident.
func createContacts(t *testing.T, dir string) *xbase3.DB {
	t.Helper()
	db := xbase3.New(dir)
	script := []string{
		"CREATE contacts (NAME C 20, CITY C 20)",
		"USE contacts",
		"APPEND BLANK",
		`REPLACE NAME WITH "ZACK", CITY WITH "AUSTIN"`,
		"APPEND BLANK",
		`REPLACE NAME WITH "AMY", CITY WITH "BOSTON"`,
		"APPEND BLANK",
		`REPLACE NAME WITH "MIKE", CITY WITH "CHICAGO"`,
	}
	if err := db.RunScript(script); err != nil {
		t.Fatalf("fixture script failed: %v", err)
	}
	return db
}

func TestIndexOnCreatesControllingOrder(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if db.IndexCount() != 1 {
		t.Fatalf("IndexCount() = %d, want 1", db.IndexCount())
	}
	if db.Order() != 1 {
		t.Fatalf("Order() = %d, want 1 (newly built index becomes controlling)", db.Order())
	}

	if err := db.Run("GO TOP"); err != nil {
		t.Fatalf("GO TOP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("NAME")); got != "AMY" {
		t.Errorf("top of NAME order = %q, want AMY", got)
	}
	if err := db.Run("SKIP"); err != nil {
		t.Fatalf("SKIP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("NAME")); got != "MIKE" {
		t.Errorf("second in NAME order = %q, want MIKE", got)
	}
	if err := db.Run("SKIP"); err != nil {
		t.Fatalf("SKIP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("NAME")); got != "ZACK" {
		t.Errorf("third in NAME order = %q, want ZACK", got)
	}
}

func TestSeekFindsExistingKey(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if err := db.Run(`SEEK "MIKE"`); err != nil {
		t.Fatalf("SEEK failed: %v", err)
	}
	if !db.Found() {
		t.Error("SEEK for an existing key should report Found")
	}
	if got := strings.TrimSpace(db.Field("CITY")); got != "CHICAGO" {
		t.Errorf("Field(CITY) after SEEK = %q, want CHICAGO", got)
	}
}

func TestSeekMissingKeyMissesCleanly(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if err := db.Run(`SEEK "NOBODY"`); err != nil {
		t.Fatalf("SEEK failed: %v", err)
	}
	if db.Found() {
		t.Error("SEEK for a missing key should not report Found")
	}
}

func TestSeekWithoutControllingIndexFails(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run(`SEEK "AMY"`); err == nil {
		t.Error("SEEK under natural order (no controlling index) should fail")
	}
}

func TestSetOrderSwitchesControllingIndex(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON NAME failed: %v", err)
	}
	if err := db.Run("INDEX ON CITY TO bycity"); err != nil {
		t.Fatalf("INDEX ON CITY failed: %v", err)
	}
	if db.IndexCount() != 2 {
		t.Fatalf("IndexCount() = %d, want 2", db.IndexCount())
	}
	// the most recently built index is controlling until told otherwise
	if db.Order() != 2 {
		t.Fatalf("Order() = %d, want 2", db.Order())
	}

	if err := db.Run("SET ORDER TO 1"); err != nil {
		t.Fatalf("SET ORDER TO 1 failed: %v", err)
	}
	if err := db.Run("GO TOP"); err != nil {
		t.Fatalf("GO TOP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("NAME")); got != "AMY" {
		t.Errorf("top under NAME order = %q, want AMY", got)
	}

	if err := db.Run("SET ORDER TO 2"); err != nil {
		t.Fatalf("SET ORDER TO 2 failed: %v", err)
	}
	if err := db.Run("GO TOP"); err != nil {
		t.Fatalf("GO TOP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("CITY")); got != "AUSTIN" {
		t.Errorf("top under CITY order = %q, want AUSTIN", got)
	}
}

func TestReindexPicksUpNewRecords(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if err := db.Run("APPEND BLANK"); err != nil {
		t.Fatalf("APPEND BLANK failed: %v", err)
	}
	if err := db.Run(`REPLACE NAME WITH "AARON", CITY WITH "DENVER"`); err != nil {
		t.Fatalf("REPLACE failed: %v", err)
	}
	if err := db.Run("REINDEX"); err != nil {
		t.Fatalf("REINDEX failed: %v", err)
	}
	if err := db.Run("GO TOP"); err != nil {
		t.Fatalf("GO TOP failed: %v", err)
	}
	if got := strings.TrimSpace(db.Field("NAME")); got != "AARON" {
		t.Errorf("top of NAME order after REINDEX = %q, want AARON", got)
	}
}

func TestSetIndexToClosesAll(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if err := db.Run("SET INDEX TO"); err != nil {
		t.Fatalf("SET INDEX TO (bare) failed: %v", err)
	}
	if db.IndexCount() != 0 {
		t.Errorf("IndexCount() = %d, want 0 after SET INDEX TO with no name", db.IndexCount())
	}
	if db.Order() != 0 {
		t.Errorf("Order() = %d, want 0 (natural order) once indexes are closed", db.Order())
	}
}

func TestCloseIndexesLeavesDatabaseOpen(t *testing.T) {
	db := createContacts(t, t.TempDir())
	defer db.Close()

	if err := db.Run("INDEX ON NAME TO byname"); err != nil {
		t.Fatalf("INDEX ON failed: %v", err)
	}
	if err := db.Run("CLOSE INDEXES"); err != nil {
		t.Fatalf("CLOSE INDEXES failed: %v", err)
	}
	if db.IndexCount() != 0 {
		t.Errorf("IndexCount() = %d, want 0 after CLOSE INDEXES", db.IndexCount())
	}
	if !db.Active() {
		t.Error("CLOSE INDEXES should not close the database itself")
	}
}

func TestUniqueIndexSkipsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	db := xbase3.New(dir)
	defer db.Close()
	script := []string{
		"CREATE dupes (NAME C 20)",
		"USE dupes",
		"APPEND BLANK",
		`REPLACE NAME WITH "SAME"`,
		"APPEND BLANK",
		`REPLACE NAME WITH "SAME"`,
	}
	if err := db.RunScript(script); err != nil {
		t.Fatalf("fixture script failed: %v", err)
	}
	if err := db.Run("INDEX ON NAME TO byname UNIQUE"); err != nil {
		t.Fatalf("INDEX ON ... UNIQUE failed: %v", err)
	}
	if err := db.Run(`SEEK "SAME"`); err != nil {
		t.Fatalf("SEEK failed: %v", err)
	}
	if !db.Found() {
		t.Error("SEEK should still find the surviving entry for the duplicate key")
	}
	if db.RecNo() != 1 {
		t.Errorf("RecNo() = %d, want 1 (first occurrence keeps the slot)", db.RecNo())
	}
}
