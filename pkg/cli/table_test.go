package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestTable_Empty(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME", "GROUP")
	tbl.Flush()
	if buf.Len() != 0 {
		t.Errorf("empty table wrote %q", buf.String())
	}
}

func TestTable_Rows(t *testing.T) {
	var buf bytes.Buffer
	tbl := NewTableTo(&buf, "NAME", "MAC")
	tbl.Row("ap-01", "00:11:22:33:44:55")
	tbl.Row("ap-0002", "00:11:22:33:44:66")
	tbl.Flush()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header, divider and 2 rows, got %d lines:\n%s", len(lines), buf.String())
	}
	if !strings.HasPrefix(lines[1], "----") {
		t.Errorf("divider line = %q", lines[1])
	}
	// columns aligned: MAC column starts at the same offset on every line
	col := strings.Index(lines[0], "MAC")
	if strings.Index(lines[2], "00:11") != col || strings.Index(lines[3], "00:11") != col {
		t.Errorf("columns not aligned:\n%s", buf.String())
	}
}
