package engine

import (
	"path/filepath"
	"sort"
	"testing"
)

func charKey(s string, width int) []byte {
	b := make([]byte, width)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func TestIndexInsertSeekDelete(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "byname")

	x, err := CreateIndex(path, "NAME", KeyChar, 10, false, false, DefaultOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	defer x.Close()

	names := []string{"ZACK", "AMY", "MIKE"}
	for i, n := range names {
		if err := x.Insert(charKey(n, 10), uint32(i+1)); err != nil {
			t.Fatalf("Insert %q: %v", n, err)
		}
	}

	if err := x.Seek(charKey("MIKE", 10)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if !x.Found() {
		t.Fatal("Seek(MIKE) should have matched exactly")
	}
	if x.RecNo() != 3 {
		t.Fatalf("Seek(MIKE) RecNo = %d, want 3", x.RecNo())
	}

	if err := x.Seek(charKey("NOBODY", 10)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if x.Found() {
		t.Fatal("Seek(NOBODY) should not have matched")
	}

	ok, derr := x.Delete(charKey("AMY", 10), 2)
	if derr != nil {
		t.Fatalf("Delete: %v", derr)
	}
	if !ok {
		t.Fatal("Delete(AMY) should report it removed an entry")
	}
	if err := x.Seek(charKey("AMY", 10)); err != nil {
		t.Fatalf("Seek after delete: %v", err)
	}
	if x.Found() {
		t.Fatal("AMY should no longer be found after Delete")
	}
}

func TestIndexGoTopGoBottomOrder(t *testing.T) {
	dir := t.TempDir()
	x, err := CreateIndex(filepath.Join(dir, "byname"), "NAME", KeyChar, 10, false, false, DefaultOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	defer x.Close()

	for i, n := range []string{"ZACK", "AMY", "MIKE"} {
		if err := x.Insert(charKey(n, 10), uint32(i+1)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	if err := x.GoTop(); err != nil {
		t.Fatalf("GoTop: %v", err)
	}
	if x.RecNo() != 2 { // AMY was inserted second, recno 2
		t.Fatalf("GoTop RecNo = %d, want 2 (AMY)", x.RecNo())
	}

	if err := x.GoBottom(); err != nil {
		t.Fatalf("GoBottom: %v", err)
	}
	if x.RecNo() != 1 { // ZACK, recno 1, sorts last
		t.Fatalf("GoBottom RecNo = %d, want 1 (ZACK)", x.RecNo())
	}
}

func TestIndexDescendingReversesOrder(t *testing.T) {
	dir := t.TempDir()
	x, err := CreateIndex(filepath.Join(dir, "byname"), "NAME", KeyChar, 10, false, true, DefaultOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	defer x.Close()

	for i, n := range []string{"AMY", "MIKE", "ZACK"} {
		if err := x.Insert(charKey(n, 10), uint32(i+1)); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}
	if err := x.GoTop(); err != nil {
		t.Fatalf("GoTop: %v", err)
	}
	if x.RecNo() != 3 { // ZACK sorts first under DESCENDING
		t.Fatalf("GoTop under DESCENDING RecNo = %d, want 3 (ZACK)", x.RecNo())
	}
}

func TestIndexHeaderRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "byname")
	x, err := CreateIndex(path, "UPPER(NAME)", KeyChar, 15, true, false, DefaultOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	if err := x.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	x2, err := OpenIndex(path)
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	defer x2.Close()
	if x2.KeyExpr() != "UPPER(NAME)" {
		t.Errorf("KeyExpr = %q, want UPPER(NAME)", x2.KeyExpr())
	}
	if x2.KeyLength() != 15 {
		t.Errorf("KeyLength = %d, want 15", x2.KeyLength())
	}
	if !x2.IsUnique() {
		t.Error("IsUnique should be true")
	}
	if x2.IsDescending() {
		t.Error("IsDescending should be false")
	}
}

func TestReindexSkipsDuplicatesOnUniqueIndex(t *testing.T) {
	dir := t.TempDir()
	fields := []FieldDef{{Name: "NAME", Type: Char, Length: 10}}
	d, err := Create(filepath.Join(dir, "dupes.dbf"), fields)
	if err != nil {
		t.Fatalf("Create dbf: %v", err)
	}
	defer d.Close()

	nameFd, _ := d.Field(0)
	for range 2 {
		d.AppendBlank()
		PutString(d.Record(), nameFd, "SAME")
		d.MarkModified()
		d.Flush()
	}

	x, err := CreateIndex(filepath.Join(dir, "byname"), "NAME", KeyChar, 10, true, false, DefaultOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	defer x.Close()

	keyFn := func(dbf *Dbf) ([]byte, *Error) {
		return charKey(GetString(dbf.Record(), nameFd), 10), nil
	}
	skipped, rerr := x.Reindex(d, keyFn)
	if rerr != nil {
		t.Fatalf("Reindex: %v", rerr)
	}
	if skipped != 1 {
		t.Fatalf("Reindex skipped = %d, want 1 (the duplicate)", skipped)
	}

	if err := x.Seek(charKey("SAME", 10)); err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if !x.Found() {
		t.Fatal("SAME should still be found once")
	}
	if x.RecNo() != 1 {
		t.Fatalf("surviving RecNo = %d, want 1 (first occurrence kept)", x.RecNo())
	}
}

// TestIndexOrderThreeForcesMultiLevelSplit inserts enough keys at the
// smallest order MinOrder allows to drive at least one internal-node
// split on top of the leaf splits, and checks the tree still answers
// Seek/GoTop/GoBottom correctly once it has grown past a single level.
func TestIndexOrderThreeForcesMultiLevelSplit(t *testing.T) {
	dir := t.TempDir()
	x, err := CreateIndex(filepath.Join(dir, "byname"), "NAME", KeyChar, 10, false, false, MinOrder)
	if err != nil {
		t.Fatalf("CreateIndex: %v", err)
	}
	defer x.Close()

	names := []string{
		"ZACK", "AMY", "MIKE", "BOB", "CARL", "DIANA", "ERIC", "FRANK",
		"GRACE", "HANK", "IVY", "JUDY", "KEN", "LIAM", "NOAH", "OLGA",
		"PAUL", "QUINN", "ROSE", "SUE",
	}
	for i, n := range names {
		if err := x.Insert(charKey(n, 10), uint32(i+1)); err != nil {
			t.Fatalf("Insert %q: %v", n, err)
		}
	}

	sorted := append([]string{}, names...)
	sort.Strings(sorted)

	for _, n := range sorted {
		if err := x.Seek(charKey(n, 10)); err != nil {
			t.Fatalf("Seek %q: %v", n, err)
		}
		if !x.Found() {
			t.Fatalf("Seek(%q) should have matched after a multi-level split", n)
		}
	}

	if err := x.GoTop(); err != nil {
		t.Fatalf("GoTop: %v", err)
	}
	wantFirstRecno := uint32(0)
	for i, n := range names {
		if n == sorted[0] {
			wantFirstRecno = uint32(i + 1)
		}
	}
	if x.RecNo() != wantFirstRecno {
		t.Fatalf("GoTop RecNo = %d, want %d (%s)", x.RecNo(), wantFirstRecno, sorted[0])
	}

	if err := x.GoBottom(); err != nil {
		t.Fatalf("GoBottom: %v", err)
	}
	wantLastRecno := uint32(0)
	last := sorted[len(sorted)-1]
	for i, n := range names {
		if n == last {
			wantLastRecno = uint32(i + 1)
		}
	}
	if x.RecNo() != wantLastRecno {
		t.Fatalf("GoBottom RecNo = %d, want %d (%s)", x.RecNo(), wantLastRecno, last)
	}
}

func TestCreateIndexRejectsOrderBelowMinimum(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateIndex(filepath.Join(dir, "byname"), "NAME", KeyChar, 10, false, false, MinOrder-1)
	if err == nil {
		t.Fatal("CreateIndex with order below MinOrder should fail")
	}
}
