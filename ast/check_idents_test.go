package ast

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func undefinedNames(t *testing.T, src string) []string {
	t.Helper()
	found, err := UndefinedNames(context.Background(), src)
	require.NoError(t, err)
	var names []string
	for _, u := range found {
		names = append(names, u.Name)
	}
	return names
}

func TestUndefinedNames(t *testing.T) {
	src := `import os
from typing import List

X = 1


def f(a: int) -> List[int]:
    y = a + X
    return [y, z, os.getcwd(), datetime.now()]
`
	found, err := UndefinedNames(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "z", found[0].Name)
	assert.Equal(t, 9, found[0].Line)
	assert.Equal(t, "datetime", found[1].Name)
	assert.Equal(t, `line 9: "z" is not defined`, found[0].String())
}

func TestUndefinedNamesScopes(t *testing.T) {
	tests := []struct {
		name   string
		src    string
		expect []string
	}{
		{"keyword argument names", "def f():\n    return dict(key=value)\n", []string{"value"}},
		{"comprehension", "def f():\n    return [i for i in range(3)]\n", nil},
		{"except alias", "def f():\n    try:\n        pass\n    except ValueError as e:\n        print(e)\n", nil},
		{"with alias", "def f(p: str):\n    with open(p) as fh:\n        return fh.read()\n", nil},
		{"for target", "def f(xs: list):\n    for a, b in xs:\n        print(a, b)\n", nil},
		{"later module def", "def f():\n    return g()\n\n\ndef g():\n    return 1\n", nil},
		{"annotation", "def f(a: House) -> None:\n    pass\n", []string{"House"}},
		{"lambda params", "def f():\n    return sorted([1], key=lambda v: v)\n", nil},
		{"class fields", "class A:\n    x: int = 1\n    y: Missing = None\n", []string{"Missing"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, undefinedNames(t, tt.src))
		})
	}
}

func TestBuiltinNamesAreDefined(t *testing.T) {
	for _, name := range []string{
		"IOError", "EnvironmentError", "ConnectionResetError", "ConnectionRefusedError",
		"ConnectionAbortedError", "ChildProcessError", "ProcessLookupError",
		"ExceptionGroup", "BaseExceptionGroup", "UnicodeTranslateError", "TabError",
		"FutureWarning", "PendingDeprecationWarning", "ImportWarning",
		"ResourceWarning", "SyntaxWarning", "BytesWarning", "EncodingWarning",
		"__spec__", "__loader__", "__package__", "__debug__", "exit", "quit",
		"aiter", "anext",
	} {
		t.Run(name, func(t *testing.T) {
			src := "def f():\n    return " + name + "\n"
			assert.Empty(t, undefinedNames(t, src))
		})
	}

	src := `def fetch(url: str) -> bytes:
    try:
        return open(url, "rb").read()
    except (IOError, ConnectionResetError) as e:
        raise ExceptionGroup("fetch failed", [e])
`
	assert.Empty(t, undefinedNames(t, src))
	assert.Equal(t, []string{"Undeclared"}, undefinedNames(t, "def f():\n    return Undeclared\n"))
}
