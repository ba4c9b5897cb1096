package cli

import (
	"bytes"
	"strings"
	"testing"
)

func newBufferOutput() (*Output, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	return &Output{writer: buf}, buf
}

func TestTableRenderAlignsColumns(t *testing.T) {
	out, buf := newBufferOutput()

	table := NewTable(out, "NAME", "BLOCKS")
	table.AddRow("alpha", "2")
	table.AddRow("a-much-longer-name", "12")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	if len(lines) != 4 {
		t.Fatalf("rendered %d lines, want 4:\n%s", len(lines), buf.String())
	}
	if lines[0] != "NAME                BLOCKS" {
		t.Errorf("header = %q", lines[0])
	}
	// The first column is 18 wide, so with the two-space gap the second
	// column starts at byte 20 on every row.
	if strings.Count(lines[1], "─") != 26 {
		t.Errorf("separator = %q, want 26 rules", lines[1])
	}
	for _, line := range lines[2:] {
		if len(line) < 21 || line[20] == ' ' {
			t.Errorf("second column misaligned in %q", line)
		}
	}
}

func TestTableRenderIgnoresColorCodesInWidths(t *testing.T) {
	out, buf := newBufferOutput()

	table := NewTable(out, "S", "N")
	table.AddRow(ColorGreen+"ok"+ColorReset, "1")
	table.AddRow("long", "2")
	table.Render()

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	first := stripANSI(lines[2])
	second := stripANSI(lines[3])
	if strings.Index(first, "1") != strings.Index(second, "2") {
		t.Errorf("colored cell skewed alignment:\n%q\n%q", first, second)
	}
}

func TestTableRenderWithoutHeadersIsSilent(t *testing.T) {
	out, buf := newBufferOutput()
	NewTable(out).Render()
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestStripANSI(t *testing.T) {
	in := ColorBold + ColorYellow + "warn" + ColorReset
	if got := stripANSI(in); got != "warn" {
		t.Errorf("stripANSI = %q, want %q", got, "warn")
	}
}

func TestWarningPlainWithoutColor(t *testing.T) {
	out, buf := newBufferOutput()
	out.Warning("disk %s", "full")
	if buf.String() != "disk full\n" {
		t.Errorf("Warning wrote %q", buf.String())
	}
}

func TestWarningColoredOnTerminal(t *testing.T) {
	buf := &bytes.Buffer{}
	out := &Output{writer: buf, colorEnabled: true}
	out.Warning("careful")
	got := buf.String()
	if !strings.HasPrefix(got, ColorYellow) || !strings.Contains(got, ColorReset) {
		t.Errorf("Warning without color codes: %q", got)
	}
	if stripANSI(got) != "careful\n" {
		t.Errorf("Warning message mangled: %q", stripANSI(got))
	}
}
