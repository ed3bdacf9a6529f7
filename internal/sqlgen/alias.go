package sqlgen

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/roach88/oqlc/internal/sqlast"
)

// aliasBaseManager hands out table group alias bases. Counters are kept per
// stem letter and scoped to one compilation.
type aliasBaseManager struct {
	counters map[rune]int
}

func newAliasBaseManager() *aliasBaseManager {
	return &aliasBaseManager{counters: map[rune]int{}}
}

// next returns the next alias base for a group named after name.
func (m *aliasBaseManager) next(name string) string {
	r, _ := utf8.DecodeRuneInString(strings.TrimLeft(name, "_"))
	if r == utf8.RuneError || !unicode.IsLetter(r) {
		r = 't'
	}
	r = unicode.ToLower(r)
	m.counters[r]++
	return fmt.Sprintf("%c%d", r, m.counters[r])
}

// tableAliases numbers the tables of one group: base_0, base_1, ...
type tableAliases struct {
	base string
	n    int
}

func (a *tableAliases) bind(table string) *sqlast.TableReference {
	ref := &sqlast.TableReference{Table: table, Alias: fmt.Sprintf("%s_%d", a.base, a.n)}
	a.n++
	return ref
}
