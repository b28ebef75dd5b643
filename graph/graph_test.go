package graph

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Significant-Gravitas/AutoGPT-Code-Ability-sub000/ast"
)

func addContract() Contract {
	return Contract{
		Name:   "add",
		Args:   []Arg{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}},
		Return: Return{Type: "int"},
	}
}

func TestContractValidate(t *testing.T) {
	require.NoError(t, addContract().Validate())

	bad := addContract()
	bad.Name = "not valid"
	assert.Error(t, bad.Validate())

	dup := addContract()
	dup.Args[1].Name = "a"
	err := dup.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `duplicate argument "a"`)

	missingType := addContract()
	missingType.Args[0].Type = ""
	assert.Error(t, missingType.Validate())
}

func TestContractSignatureAndStub(t *testing.T) {
	c := addContract()
	assert.Equal(t, "add(a: int, b: int) -> int", c.Signature())
	c.Description = "Adds two numbers."
	assert.Equal(t, "async def add(a: int, b: int) -> int:\n    \"Adds two numbers.\"\n    ...\n", c.Stub(true))
}

func TestCommitCreatesChildrenAndTypes(t *testing.T) {
	a := NewArena()
	root := a.AddRoot(addContract())

	err := a.Commit(root, Implementation{
		Code:         "def add(a: int, b: int) -> int:\n    return helper(a) + b",
		Imports:      []string{"import math"},
		NewFunctions: []Contract{{Name: "helper", Args: []Arg{{Name: "x", Type: "int"}}, Return: Return{Type: "int"}}},
		NewTypes: []NewType{
			{Name: "House", Kind: ast.KindRecord, Refs: []string{"Room"}},
			{Name: "Room", Kind: ast.KindRecord},
		},
	})
	require.NoError(t, err)

	n, ok := a.Function(root)
	require.True(t, ok)
	assert.Equal(t, Written, n.State)
	require.Len(t, n.Children, 1)
	assert.Len(t, n.Types, 2)

	child, ok := a.Function(n.Children[0])
	require.True(t, ok)
	assert.Equal(t, Definition, child.State)
	assert.Equal(t, root, child.Root)
	assert.Equal(t, root, child.Parent)
	assert.Equal(t, []FuncID{child.ID}, a.Pending(root))

	house, ok := a.TypeByName("House")
	require.True(t, ok)
	room, _ := a.TypeByName("Room")
	assert.Equal(t, []TypeID{room.ID}, house.Related)

	// Identity merge: a second declaration reuses the node.
	require.NoError(t, a.Commit(child.ID, Implementation{
		Code:     "def helper(x: int) -> int:\n    return x",
		NewTypes: []NewType{{Name: "House", Kind: ast.KindRecord}},
		Calls:    []string{"add"},
	}))
	assert.Len(t, a.Types(), 2)
	child, _ = a.Function(child.ID)
	assert.Equal(t, []TypeID{house.ID}, child.Types)
	assert.Equal(t, []FuncID{root}, child.Children)
	assert.Len(t, a.Tree(root), 2)
	assert.Equal(t, []FuncID{root}, a.Roots())
}

func TestLifecycleTransitions(t *testing.T) {
	a := NewArena()
	id := a.AddRoot(addContract())

	require.NoError(t, a.RecordErrors(id, []string{"first attempt"}))
	require.NoError(t, a.Fail(id, []string{"bad"}))
	n, _ := a.Function(id)
	assert.Equal(t, Failed, n.State)
	assert.Equal(t, []string{"bad"}, n.Errors)

	err := a.Commit(id, Implementation{Code: "x"})
	assert.True(t, errors.Is(err, ErrFailed))
	assert.ErrorIs(t, a.RecordErrors(id, nil), ErrFailed)

	other := a.AddRoot(addContract())
	require.NoError(t, a.Commit(other, Implementation{Code: "x"}))
	assert.ErrorIs(t, a.Commit(other, Implementation{Code: "y"}), ErrNotPending)
	assert.ErrorIs(t, a.Fail(other, nil), ErrNotPending)
	assert.ErrorIs(t, a.Fail(99, nil), ErrUnknownNode)
}

func TestScopeExcludesSelfAndOtherTrees(t *testing.T) {
	a := NewArena()
	r1 := a.AddRoot(addContract())
	require.NoError(t, a.Commit(r1, Implementation{
		Code:         "x",
		NewFunctions: []Contract{{Name: "helper"}},
		NewTypes:     []NewType{{Name: "House"}},
	}))
	a.AddRoot(Contract{Name: "other"})

	s, err := a.Scope(r1)
	require.NoError(t, err)
	assert.Equal(t, []string{"helper"}, s.FunctionNames())
	require.Len(t, s.Types, 1)
	assert.Equal(t, "House", s.Types[0].Name)
}

func TestArenaConcurrentCommits(t *testing.T) {
	a := NewArena()
	var ids []FuncID
	for range 20 {
		ids = append(ids, a.AddRoot(addContract()))
	}
	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id FuncID) {
			defer wg.Done()
			assert.NoError(t, a.Commit(id, Implementation{
				Code:     "x",
				NewTypes: []NewType{{Name: "Shared"}},
			}))
		}(id)
	}
	wg.Wait()
	assert.Len(t, a.Types(), 1)
}

func TestCommitRejectsConflictingType(t *testing.T) {
	a := NewArena()
	r1 := a.AddRoot(addContract())
	r2 := a.AddRoot(addContract())
	house := []ast.Field{{Name: "rooms", Type: "int"}}
	require.NoError(t, a.Commit(r1, Implementation{Code: "x", NewTypes: []NewType{{Name: "House", Fields: house}}}))

	err := a.Commit(r2, Implementation{
		Code:         "y",
		NewFunctions: []Contract{{Name: "helper"}},
		NewTypes:     []NewType{{Name: "House", Fields: []ast.Field{{Name: "rooms", Type: "str"}}}},
	})
	require.ErrorIs(t, err, ErrTypeConflict)
	n, _ := a.Function(r2)
	assert.Equal(t, Definition, n.State)
	assert.Empty(t, n.Children)

	same := []ast.Field{{Name: "rooms", Type: "int"}}
	require.NoError(t, a.Commit(r2, Implementation{Code: "y", NewTypes: []NewType{{Name: "House", Fields: same}}}))
}

func siblingsOf(t *testing.T, a *Arena, root FuncID) (FuncID, FuncID) {
	t.Helper()
	require.NoError(t, a.Commit(root, Implementation{
		Code: "x",
		NewFunctions: []Contract{
			{Name: "first", Return: Return{Type: "int"}},
			{Name: "second", Return: Return{Type: "int"}},
		},
	}))
	pending := a.Pending(root)
	require.Len(t, pending, 2)
	return pending[0], pending[1]
}

func countNamed(a *Arena, root FuncID, name string) int {
	n := 0
	for _, f := range a.Tree(root) {
		if f.Contract.Name == name {
			n++
		}
	}
	return n
}

func TestCommitMergesSharedHelper(t *testing.T) {
	a := NewArena()
	root := a.AddRoot(addContract())
	first, second := siblingsOf(t, a, root)
	helper := Contract{Name: "helper", Args: []Arg{{Name: "x", Type: "Optional[int]"}}, Return: Return{Type: "int"}}
	require.NoError(t, a.Commit(first, Implementation{Code: "x", NewFunctions: []Contract{helper}}))

	same := helper
	same.Args = []Arg{{Name: "x", Type: "int | None"}}
	require.NoError(t, a.Commit(second, Implementation{Code: "y", NewFunctions: []Contract{same}}))

	assert.Equal(t, 1, countNamed(a, root, "helper"))
	f, _ := a.Function(first)
	s, _ := a.Function(second)
	require.Len(t, f.Children, 1)
	assert.Equal(t, f.Children, s.Children)
}

func TestCommitRejectsConflictingHelper(t *testing.T) {
	a := NewArena()
	root := a.AddRoot(addContract())
	first, second := siblingsOf(t, a, root)
	require.NoError(t, a.Commit(first, Implementation{
		Code:         "x",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "int"}}},
	}))

	err := a.Commit(second, Implementation{
		Code:         "y",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "str"}}},
		NewTypes:     []NewType{{Name: "House"}},
	})
	require.ErrorIs(t, err, ErrFunctionConflict)
	n, _ := a.Function(second)
	assert.Equal(t, Definition, n.State)
	assert.Empty(t, n.Children)
	assert.Empty(t, a.Types())
	assert.Equal(t, 1, countNamed(a, root, "helper"))

	err = a.Commit(second, Implementation{
		Code:         "y",
		NewFunctions: []Contract{{Name: "first", Return: Return{Type: "str"}}},
	})
	require.ErrorIs(t, err, ErrFunctionConflict)

	err = a.Commit(second, Implementation{
		Code: "y",
		NewFunctions: []Contract{
			{Name: "other", Return: Return{Type: "int"}},
			{Name: "other", Return: Return{Type: "int"}},
		},
	})
	require.ErrorIs(t, err, ErrFunctionConflict)
}

func TestCommitHelperIgnoresOtherTreesAndFailedNodes(t *testing.T) {
	a := NewArena()
	r1 := a.AddRoot(addContract())
	r2 := a.AddRoot(addContract())
	require.NoError(t, a.Commit(r1, Implementation{
		Code:         "x",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "int"}}},
	}))
	require.NoError(t, a.Commit(r2, Implementation{
		Code:         "y",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "str"}}},
	}))
	assert.Equal(t, 1, countNamed(a, r2, "helper"))

	r3 := a.AddRoot(addContract())
	first, second := siblingsOf(t, a, r3)
	require.NoError(t, a.Commit(first, Implementation{
		Code:         "x",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "int"}}},
	}))
	old := a.Pending(r3)
	require.Len(t, old, 2)
	for _, id := range old {
		if id != second {
			require.NoError(t, a.Fail(id, []string{"gave up"}))
		}
	}
	require.NoError(t, a.Commit(second, Implementation{
		Code:         "y",
		NewFunctions: []Contract{{Name: "helper", Return: Return{Type: "str"}}},
	}))
	assert.Equal(t, 2, countNamed(a, r3, "helper"))
}

func TestConcurrentSiblingsShareHelper(t *testing.T) {
	a := NewArena()
	root := a.AddRoot(addContract())
	var contracts []Contract
	for _, name := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		contracts = append(contracts, Contract{Name: "step_" + name, Return: Return{Type: "int"}})
	}
	require.NoError(t, a.Commit(root, Implementation{Code: "x", NewFunctions: contracts}))
	siblings := a.Pending(root)
	require.Len(t, siblings, len(contracts))

	helper := Contract{Name: "helper", Args: []Arg{{Name: "n", Type: "int"}}, Return: Return{Type: "int"}}
	var wg sync.WaitGroup
	for _, id := range siblings {
		wg.Add(1)
		go func(id FuncID) {
			defer wg.Done()
			assert.NoError(t, a.Commit(id, Implementation{Code: "x", NewFunctions: []Contract{helper}}))
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 1, countNamed(a, root, "helper"))
	pending := a.Pending(root)
	require.Len(t, pending, 1)
	for _, id := range siblings {
		n, _ := a.Function(id)
		assert.Equal(t, pending, n.Children)
	}
}
