package workflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyError(t *testing.T) {
	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	if !isDuplicateKeyError(dup) {
		t.Fatal("mysql error 1062 must be recognized as a duplicate key")
	}
	if !isDuplicateKeyError(fmt.Errorf("create failed: %w", dup)) {
		t.Fatal("wrapped 1062 must still be recognized")
	}
	if isDuplicateKeyError(&mysql.MySQLError{Number: 1213}) {
		t.Fatal("deadlock (1213) is not a duplicate key")
	}
	if isDuplicateKeyError(errors.New("some other failure")) {
		t.Fatal("non-mysql errors are not duplicate keys")
	}
}

func TestJournalNumberTakenWrapsForRetryBranching(t *testing.T) {
	err := fmt.Errorf("%w: JRN-000042", ErrJournalNumberTaken)
	if !errors.Is(err, ErrJournalNumberTaken) {
		t.Fatal("callers must be able to branch on ErrJournalNumberTaken with errors.Is")
	}
}
