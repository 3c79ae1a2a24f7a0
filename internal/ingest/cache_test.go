package ingest

import "testing"

func TestAssignAccountIsMonotoneAndStable(t *testing.T) {
	c := NewCaches()

	id1, created1 := c.AssignAccount("alice")
	if !created1 || id1 != 1 {
		t.Fatalf("first assignment = (%d, %v), want (1, true)", id1, created1)
	}

	id2, created2 := c.AssignAccount("bob")
	if !created2 || id2 != 2 {
		t.Fatalf("second assignment = (%d, %v), want (2, true)", id2, created2)
	}

	idAgain, created3 := c.AssignAccount("alice")
	if created3 {
		t.Error("re-assigning alice should not report created")
	}
	if idAgain != id1 {
		t.Errorf("re-assigning alice returned %d, want stable %d", idAgain, id1)
	}
}

func TestAssignPermlinkReusesIDOnEdit(t *testing.T) {
	c := NewCaches()

	id, created := c.AssignPermlink("hello")
	if !created || id != 1 {
		t.Fatalf("first assignment = (%d, %v), want (1, true)", id, created)
	}

	idAgain, created2 := c.AssignPermlink("hello")
	if created2 {
		t.Error("editing the same permlink should not assign a new id")
	}
	if idAgain != id {
		t.Errorf("edit returned %d, want stable %d", idAgain, id)
	}
}

func TestNextOperationIDStrictlyIncreases(t *testing.T) {
	c := NewCaches()

	first := c.NextOperationID()
	second := c.NextOperationID()

	if first != 1 || second != 2 {
		t.Errorf("got (%d, %d), want (1, 2)", first, second)
	}
}

func TestNextAccountOpSeqNoCountsPriorOperations(t *testing.T) {
	c := NewCaches()
	c.AssignAccount("alice")

	seq0, err := c.NextAccountOpSeqNo("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq0 != 0 {
		t.Errorf("first seq = %d, want 0", seq0)
	}

	seq1, err := c.NextAccountOpSeqNo("alice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seq1 != 1 {
		t.Errorf("second seq = %d, want 1", seq1)
	}
}

func TestNextAccountOpSeqNoMissingAccountIsConsistencyError(t *testing.T) {
	c := NewCaches()
	_, err := c.NextAccountOpSeqNo("nobody")
	if err == nil {
		t.Fatal("expected a ConsistencyError for an unknown account")
	}
}

func TestBootstrapBuiltinAccountsSkipsKnown(t *testing.T) {
	c := NewCaches()
	c.AssignAccount("miners")

	assigned := c.BootstrapBuiltinAccounts([]string{"miners", "null", "temp"})

	if len(assigned) != 2 {
		t.Fatalf("expected 2 newly bootstrapped accounts, got %d", len(assigned))
	}
	names := map[string]bool{}
	for _, a := range assigned {
		names[a.Name] = true
	}
	if names["miners"] {
		t.Error("miners was already known and should not be re-bootstrapped")
	}
	if !names["null"] || !names["temp"] {
		t.Error("expected null and temp to be bootstrapped")
	}
}
