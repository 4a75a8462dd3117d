package inmemdb

import (
	"strings"
	"sync"
	"time"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/prospect"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
)

type (
	DB struct {
		admin    *adminTable
		school   *schoolTable
		user     *userTable
		prospect *prospectTable
	}

	adminTable struct {
		sync.RWMutex
		table map[string]*admin.Admin
	}

	schoolTable struct {
		sync.RWMutex
		table map[string]*school.School
	}

	userTable struct {
		sync.RWMutex
		table map[string]*schooluser.User
	}

	prospectTable struct {
		sync.RWMutex
		table map[string]*prospect.Prospect
	}
)

func Open() (*DB, error) {
	db := &DB{
		admin:    &adminTable{table: make(map[string]*admin.Admin)},
		school:   &schoolTable{table: make(map[string]*school.School)},
		user:     &userTable{table: make(map[string]*schooluser.User)},
		prospect: &prospectTable{table: make(map[string]*prospect.Prospect)},
	}
	return db, nil
}

// Reset truncates all tables. Repositories hold on to the DB, so tests can
// wipe state between runs without rewiring services.
func (db *DB) Reset() {
	db.admin.Lock()
	db.admin.table = make(map[string]*admin.Admin)
	db.admin.Unlock()

	db.school.Lock()
	db.school.table = make(map[string]*school.School)
	db.school.Unlock()

	db.user.Lock()
	db.user.table = make(map[string]*schooluser.User)
	db.user.Unlock()

	db.prospect.Lock()
	db.prospect.table = make(map[string]*prospect.Prospect)
	db.prospect.Unlock()
}

// orderedLess applies ordering the way an ORDER BY clause does: each field in
// turn, falling through to the next on ties. Unknown fields compare equal.
func orderedLess(ordering []core.DBOrdering, cmp func(field string) int) (bool, bool) {
	for _, ord := range ordering {
		c := cmp(ord.Field)
		if c == 0 {
			continue
		}
		if ord.Ascending {
			return c < 0, true
		}
		return c > 0, true
	}
	return false, false
}

func compareStrings(a, b string) int { return strings.Compare(a, b) }

func compareBools(a, b bool) int {
	if a == b {
		return 0
	}
	if !a {
		return -1 // false sorts first, like postgres ASC
	}
	return 1
}

func compareTimes(a, b time.Time) int {
	if a.Before(b) {
		return -1
	}
	if a.After(b) {
		return 1
	}
	return 0
}
