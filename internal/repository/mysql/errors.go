package mysql

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/Guyuepp/Go-Clean-Architecture-Feed/domain"
)

const (
	errDuplicateEntry  = 1062
	errNoReferencedRow = 1452
)

var knownConstraints = []string{
	domain.ConstraintLikeUnique,
	domain.ConstraintLikeUser,
	domain.ConstraintLikeImage,
	domain.ConstraintUserHandle,
	domain.ConstraintImageTitle,
	domain.ConstraintImageUser,
}

// translateError turns constraint violations into *domain.ConflictError and
// leaves every other error untouched.
func translateError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return err
	}
	switch myErr.Number {
	case errDuplicateEntry, errNoReferencedRow:
		return &domain.ConflictError{Constraint: constraintName(myErr.Message), Err: err}
	default:
		return err
	}
}

func constraintName(msg string) string {
	for _, name := range knownConstraints {
		if strings.Contains(msg, name) {
			return name
		}
	}
	return "unknown"
}
