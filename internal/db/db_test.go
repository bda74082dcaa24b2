package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestSplitSQLStatements(t *testing.T) {
	script := `-- schema
CREATE TABLE a (
    id INT PRIMARY KEY
);

-- second table
CREATE TABLE b (id INT);
`
	statements := SplitSQLStatements(script)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %v", len(statements), statements)
	}
	if statements[1] != "CREATE TABLE b (id INT)" {
		t.Fatalf("unexpected second statement: %q", statements[1])
	}
}

func TestSplitSQLStatements_EmptyScript(t *testing.T) {
	if got := SplitSQLStatements("-- nothing here\n\n"); len(got) != 0 {
		t.Fatalf("expected no statements, got %v", got)
	}
}

func TestIsDuplicateEntry(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'Nike Air' for key 'products.name'"}
	if !IsDuplicateEntry(dup) {
		t.Fatal("error 1062 must be a duplicate entry")
	}
	if !IsDuplicateEntry(fmt.Errorf("failed to create product: %w", dup)) {
		t.Fatal("wrapped 1062 must still be a duplicate entry")
	}

	if IsDuplicateEntry(&mysql.MySQLError{Number: 1452}) {
		t.Fatal("foreign key violation is not a duplicate entry")
	}
	if IsDuplicateEntry(errors.New("Duplicate entry in message only")) {
		t.Fatal("message text alone must not count")
	}
	if IsDuplicateEntry(nil) {
		t.Fatal("nil is not a duplicate entry")
	}
}
