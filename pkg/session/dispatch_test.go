package session

import (
	"strconv"
	"strings"
	"testing"

	"github.com/mkfoss/xbase3/pkg/lang"
)

func run(t *testing.T, s *Session, line string) {
	t.Helper()
	p := lang.NewParser(line)
	cmd, serr := p.ParseCommand()
	if serr != nil {
		t.Fatalf("parse %q: %v", line, serr)
	}
	if err := s.Execute(cmd); err != nil {
		t.Fatalf("execute %q: %v", line, err)
	}
}

func newPeopleSession(t *testing.T) *Session {
	t.Helper()
	s := New(t.TempDir())
	run(t, s, "CREATE people (NAME C 20, AGE N 5 0)")
	run(t, s, "USE people")
	for _, row := range []struct {
		name string
		age  float64
	}{{"AMY", 30}, {"MIKE", 45}, {"ZACK", 20}} {
		run(t, s, "APPEND BLANK")
		run(t, s, "REPLACE NAME WITH \""+row.name+"\"")
		run(t, s, "REPLACE AGE WITH "+strconv.Itoa(int(row.age)))
	}
	return s
}

func TestCountAllRecords(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "COUNT TO N")
	v, ok := s.GetVar("N")
	if !ok {
		t.Fatal("N was not set by COUNT")
	}
	if v.ToNumber() != 3 {
		t.Errorf("COUNT TO N = %v, want 3", v.ToNumber())
	}
}

func TestCountWithForCondition(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "COUNT TO N FOR AGE > 25")
	v, _ := s.GetVar("N")
	if v.ToNumber() != 2 {
		t.Errorf("COUNT FOR AGE>25 = %v, want 2", v.ToNumber())
	}
}

func TestSumAndAverage(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "SUM AGE TO TOTAL")
	sum, _ := s.GetVar("TOTAL")
	if sum.ToNumber() != 95 {
		t.Errorf("SUM AGE = %v, want 95", sum.ToNumber())
	}

	run(t, s, "AVERAGE AGE TO AVG1")
	avg, _ := s.GetVar("AVG1")
	if avg.ToNumber() != 95.0/3.0 {
		t.Errorf("AVERAGE AGE = %v, want %v", avg.ToNumber(), 95.0/3.0)
	}
}

func TestCopyToWritesNewTable(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "COPY TO snapshot")

	s2 := New(s.Dir)
	run(t, s2, "USE snapshot")
	defer s2.closeDatabase()
	if s2.Current.RecordCount() != 3 {
		t.Fatalf("copied table has %d records, want 3", s2.Current.RecordCount())
	}
}

func TestSetDeletedHidesDeletedRecords(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "GO TOP")
	run(t, s, "DELETE")
	run(t, s, "SET DELETED ON")
	if !s.DeletedHidden {
		t.Fatal("SET DELETED ON should set DeletedHidden")
	}
	run(t, s, "COUNT TO N")
	v, _ := s.GetVar("N")
	if v.ToNumber() != 2 {
		t.Errorf("COUNT with SET DELETED ON = %v, want 2 (one record soft-deleted)", v.ToNumber())
	}
}

func TestStoreCreatesVariable(t *testing.T) {
	s := New(t.TempDir())
	run(t, s, "STORE 5 + 2 TO X")
	v, ok := s.GetVar("X")
	if !ok {
		t.Fatal("X was not stored")
	}
	if v.ToNumber() != 7 {
		t.Errorf("X = %v, want 7", v.ToNumber())
	}
}

func TestReplaceUnknownFieldReportsAndContinues(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()

	var lines []string
	s.Out = func(line string) { lines = append(lines, line) }

	run(t, s, "GO TOP")
	run(t, s, "REPLACE NOSUCHFIELD WITH 1, AGE WITH 99")

	found := false
	for _, line := range lines {
		if strings.Contains(line, "NOSUCHFIELD") {
			found = true
		}
	}
	if !found {
		t.Fatalf("REPLACE with an unknown field should report it; got output %v", lines)
	}

	v, ok := s.FieldValue("AGE")
	if !ok || v.ToNumber() != 99 {
		t.Fatalf("AGE after REPLACE = %v, %v, want 99 (later replacement should still apply)", v, ok)
	}
}

func TestSetOrderZeroIsNaturalOrder(t *testing.T) {
	s := newPeopleSession(t)
	defer s.closeDatabase()
	run(t, s, "SET ORDER TO 0")
	if s.Order != 0 {
		t.Errorf("Order = %d, want 0 after SET ORDER TO 0", s.Order)
	}
	if s.Found() {
		t.Error("Found should be false before any SEEK/FIND under natural order")
	}
	if s.IndexCount() != 0 {
		t.Errorf("IndexCount = %d, want 0", s.IndexCount())
	}
}
