package command

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawSegments(command string) []string {
	var out []string
	for _, s := range Segments(command) {
		out = append(out, s.Raw)
	}
	return out
}

func TestSegments_Operators(t *testing.T) {
	tests := []struct {
		command string
		want    []string
	}{
		{"a && b", []string{"a", "b"}},
		{"a || b; c", []string{"a", "b", "c"}},
		{"a | b & c", []string{"a", "b", "c"}},
		{"a\nb", []string{"a", "b"}},
		{`echo "x && y"`, []string{`echo "x && y"`}},
		{`echo 'x ; y'`, []string{`echo 'x ; y'`}},
		{`echo $(cd x && pwd)`, []string{"cd x", "pwd", `echo $(cd x && pwd)`}},
		{"echo `a; b`", []string{"a", "b", "echo `a; b`"}},
		{`echo "$(date)"`, []string{"date", `echo "$(date)"`}},
		{`echo '$(date)'`, []string{`echo '$(date)'`}},
		{`find . -exec rm {} \;`, []string{`find . -exec rm {} \;`}},
		{"cmd >out 2>&1 && next", []string{"cmd >out 2>&1", "next"}},
		{"cmd &>log; next", []string{"cmd &>log", "next"}},
		{"", nil},
		{" ;; ", nil},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rawSegments(tt.command), tt.command)
	}
}

func TestSegments_HeredocBodyKept(t *testing.T) {
	cmd := "cat <<EOF > notes.txt\na && b; c\nEOF\nrm -rf out"
	segs := Segments(cmd)
	require.Len(t, segs, 2)
	assert.Contains(t, segs[0].Raw, "a && b; c")
	assert.Equal(t, "rm", segs[1].Program())
}

func TestSegments_StripsPrelude(t *testing.T) {
	segs := Segments("LANG=C env -i PATH=/bin command nohup rm -rf x")
	require.Len(t, segs, 1)
	assert.Equal(t, []string{"rm", "-rf", "x"}, segs[0].Words)
}

func TestSegments_ReservedWords(t *testing.T) {
	tests := []struct {
		command string
		want    [][]string
	}{
		{"if true; then rm -f a; fi", [][]string{{"true"}, {"rm", "-f", "a"}}},
		{"if a; then b; elif c; then d; else e; fi", [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}}},
		{"for f in x; do rm -f $f; done", [][]string{{"for", "f", "in", "x"}, {"rm", "-f", "$f"}}},
		{"while read l; do rm $l; done", [][]string{{"read", "l"}, {"rm", "$l"}}},
		{"until false; do :; done", [][]string{{"false"}, {":"}}},
		{"{ rm -f a; }", [][]string{{"rm", "-f", "a"}}},
		{"! rm -f a", [][]string{{"rm", "-f", "a"}}},
	}
	for _, tt := range tests {
		var got [][]string
		for _, s := range Segments(tt.command) {
			got = append(got, s.Words)
		}
		assert.Equal(t, tt.want, got, tt.command)
	}
}

func TestSegments_Substitutions(t *testing.T) {
	segs := Segments("echo $(rm -f a $(basename b))")
	require.Len(t, segs, 3)
	assert.Equal(t, []string{"basename", "b"}, segs[0].Words)
	assert.Equal(t, []string{"rm", "-f", "a", "$(basename", "b)"}, segs[1].Words)
	assert.Equal(t, "echo", segs[2].Program())
}

func TestSegments_QuotedHeredocBodyNotExpanded(t *testing.T) {
	cmd := "git commit -F - <<'EOF'\nfix: drop $(rm -rf x) from docs\nEOF"
	segs := Segments(cmd)
	require.Len(t, segs, 1)
	assert.Equal(t, "git", segs[0].Program())

	segs = Segments("cat <<EOF\n$(rm -rf x)\nEOF")
	require.Len(t, segs, 2)
	assert.Equal(t, "rm", segs[0].Program())
}

func TestSegments_HeredocInsideSubstitution(t *testing.T) {
	cmd := "git commit -m \"$(cat <<'EOF'\nfeature: don't stop\nEOF\n)\" && rm -f a.lock"
	var programs []string
	for _, s := range Segments(cmd) {
		programs = append(programs, s.Program())
	}
	assert.Equal(t, []string{"cat", "git", "rm"}, programs)
}

func TestSegments_HereStringIsNotHeredoc(t *testing.T) {
	segs := Segments("grep x <<<word\nrm -f a.lock")
	require.Len(t, segs, 2)
	assert.Equal(t, "rm", segs[1].Program())
}

func TestSegments_Xargs(t *testing.T) {
	segs := Segments("ls a.lock b | xargs -n 1 -I {} rm -f")
	require.Len(t, segs, 2)
	xargs := segs[1]
	assert.True(t, xargs.Xargs)
	assert.Equal(t, []string{"rm", "-f"}, xargs.Words)
	assert.Equal(t, []string{"ls", "a.lock", "b"}, xargs.Upstream)

	segs = Segments("ls a; xargs rm < list")
	require.Len(t, segs, 2)
	assert.True(t, segs[1].Xargs)
	assert.Nil(t, segs[1].Upstream)

	segs = Segments("ls a |\n xargs -- rm")
	require.Len(t, segs, 2)
	assert.Equal(t, []string{"ls", "a"}, segs[1].Upstream)
}

func TestSegments_UnterminatedQuoteFallsBack(t *testing.T) {
	segs := Segments(`rm -rf "unterminated`)
	require.Len(t, segs, 1)
	assert.Equal(t, "rm", segs[0].Program())
	assert.Contains(t, segs[0].Args(), `"unterminated`)
}

func TestSegment_ProgramAndArgs(t *testing.T) {
	var empty Segment
	assert.Equal(t, "", empty.Program())
	assert.Nil(t, empty.Args())

	seg := Segment{Words: []string{"/usr/bin/GIT", "status"}}
	assert.Equal(t, "git", seg.Program())
	assert.Equal(t, []string{"status"}, seg.Args())
}
