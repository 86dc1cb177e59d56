package stats

import "testing"

func TestFormatTableAlignsColumns(t *testing.T) {
	headers := []string{"#", "Expected", "Observed"}
	rows := [][]string{
		{"3", "brown", "bread"},
		{"12", "jumps", "jam"},
	}
	rightAlign := map[int]bool{0: true}

	lines := formatTable(headers, rows, rightAlign)
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0] != " # Expected Observed" {
		t.Fatalf("unexpected header line: %q", lines[0])
	}
	if lines[1] != " 3 brown    bread   " {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "12 jumps    jam     " {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}

func TestFormatTableWideRunes(t *testing.T) {
	lines := formatTable([]string{"Path", "N"}, [][]string{{"日本.txt", "1"}, {"a.txt", "2"}}, nil)
	if lines[1] != "日本.txt 1" {
		t.Fatalf("unexpected row line: %q", lines[1])
	}
	if lines[2] != "a.txt    2" {
		t.Fatalf("unexpected row line: %q", lines[2])
	}
}
