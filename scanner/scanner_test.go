package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func codeBytes(src string) string {
	var out []byte
	sc := New(src)
	for ch, ok := sc.Next(); ok; ch, ok = sc.Next() {
		if sc.InCode() {
			out = append(out, ch)
		}
	}
	return string(out)
}

func TestCodeScannerSkipsStringsAndComments(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		expect string
	}{
		{"plain", "x = 1", "x = 1"},
		{"double", `x = "a.b"`, `x = `},
		{"single", `x = 'a#b' + y`, `x =  + y`},
		{"escaped quote", `x = "a\"b" + y`, `x =  + y`},
		{"comment", "x = 1 # models.User\ny", "x = 1 \ny"},
		{"hash in string", `x = "#" # c`, `x =  `},
		{"triple double", "x = \"\"\"a\n\"b\"\n\"\"\"\ny", "x = \ny"},
		{"triple single", "'''doc'''\nz", "\nz"},
		{"empty string", `f('') + g`, `f() + g`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, codeBytes(tt.input))
		})
	}
}

func TestCodeScannerLineCounting(t *testing.T) {
	sc := New("a\n\"\"\"x\ny\"\"\"\nb")
	for _, ok := sc.Next(); ok; _, ok = sc.Next() {
		if sc.Src()[sc.Pos()] == 'b' {
			break
		}
	}
	assert.Equal(t, 4, sc.Line())
}

func TestSplitTopLevel(t *testing.T) {
	assert.Equal(t, []string{"str", "dict[str, int]", "'a,b'"}, SplitTopLevel("str, dict[str, int], 'a,b'", ','))
	assert.Equal(t, []string{"A", "B[C | D]", "None"}, SplitTopLevel("A | B[C | D] | None", '|'))
	assert.Nil(t, SplitTopLevel("   ", ','))
}

func TestFindTopLevel(t *testing.T) {
	s := `f(a, b), "x,y", c`
	pos := FindTopLevel(s, func(ch byte, _ int, _ string) bool { return ch == ',' })
	assert.Equal(t, 7, pos)
	all := FindAllTopLevel(s, func(ch byte, _ int, _ string) bool { return ch == ',' })
	assert.Equal(t, []int{7, 14}, all)
}

func TestCodeMaskAndIsInCode(t *testing.T) {
	src := `a = "b" # c`
	mask := CodeMask(src)
	assert.True(t, mask[0])
	assert.False(t, mask[4])
	assert.False(t, mask[5])
	assert.False(t, mask[10])
	assert.True(t, IsInCode(src, 2))
	assert.False(t, IsInCode(src, 5))
	assert.False(t, IsInCode(src, 99))
}
