package reference

import (
	"fmt"
	"strings"

	"github.com/oklog/ulid/v2"
)

// New returns a unique, sortable business reference like "SUB-01J8...".
func New(prefix string) string {
	return fmt.Sprintf("%s-%s", strings.ToUpper(prefix), ulid.Make().String())
}
