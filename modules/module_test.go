package modules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withCleanRegistry(t *testing.T) {
	t.Helper()
	oldReg, oldSyms := registry, symbols
	registry = make(map[string]*Module)
	symbols = make(map[string]*Module)
	t.Cleanup(func() { registry, symbols = oldReg, oldSyms })
}

func TestRegister(t *testing.T) {
	withCleanRegistry(t)
	Register(&Module{Name: "test", Package: "test-dist", Symbols: []string{"foo"}})
	Register(&Module{Name: "bare", Bare: true})

	line, ok := ImportFor("foo")
	require.True(t, ok)
	assert.Equal(t, "from test import foo", line)
	line, ok = ImportFor("bare")
	require.True(t, ok)
	assert.Equal(t, "import bare", line)
	_, ok = ImportFor("test")
	assert.False(t, ok)

	pkg, ok := PackageFor("test.sub")
	require.True(t, ok)
	assert.Equal(t, "test-dist", pkg)
}

func TestFirstSymbolRegistrationWins(t *testing.T) {
	withCleanRegistry(t)
	Register(&Module{Name: "first", Symbols: []string{"thing"}})
	Register(&Module{Name: "second", Symbols: []string{"thing"}})
	line, ok := ImportFor("thing")
	require.True(t, ok)
	assert.Equal(t, "from first import thing", line)
}

func TestImportFor(t *testing.T) {
	tests := []struct {
		name   string
		expect string
	}{
		{"datetime", "from datetime import datetime"},
		{"List", "from typing import List"},
		{"BaseModel", "from pydantic import BaseModel"},
		{"Enum", "from enum import Enum"},
		{"uuid4", "from uuid import uuid4"},
		{"Decimal", "from decimal import Decimal"},
		{"json", "import json"},
		{"re", "import re"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ok := ImportFor(tt.name)
			require.True(t, ok)
			assert.Equal(t, tt.expect, line)
		})
	}
	_, ok := ImportFor("numpy")
	assert.False(t, ok)
	_, ok = ImportFor("frobnicate")
	assert.False(t, ok)
}

func TestPackageFor(t *testing.T) {
	pkg, ok := PackageFor("pydantic")
	require.True(t, ok)
	assert.Equal(t, "pydantic", pkg)
	pkg, ok = PackageFor("dateutil.parser")
	require.True(t, ok)
	assert.Equal(t, "python-dateutil", pkg)
	_, ok = PackageFor("json")
	assert.False(t, ok)
	_, ok = PackageFor("unknown_mod")
	assert.False(t, ok)
}
