package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/school"
)

type schoolRepository struct {
	db *DB
}

func NewSchoolRepository(db *DB) school.Repository {
	return &schoolRepository{db: db}
}

func (repo *schoolRepository) matches(sch *school.School, name, email, taxID string) bool {
	if sch.Name == name || sch.Email == email {
		return true
	}
	return taxID != "" && sch.TaxID == taxID
}

func (repo *schoolRepository) CheckSchoolUniqueness(_ context.Context, name, email, taxID string, excludedSchools ...school.School) error {
	repo.db.school.RLock()
	defer repo.db.school.RUnlock()

	excluded := make(map[string]struct{}, len(excludedSchools))
	for _, sch := range excludedSchools {
		excluded[sch.ID] = struct{}{}
	}
	for _, sch := range repo.db.school.table {
		if _, skip := excluded[sch.ID]; skip {
			continue
		}
		if repo.matches(sch, name, email, taxID) {
			return school.ErrExists
		}
	}
	return nil
}

func (repo *schoolRepository) CreateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.school.Lock()
	defer repo.db.school.Unlock()

	for _, s := range repo.db.school.table {
		if repo.matches(s, sch.Name, sch.Email, sch.TaxID) {
			return school.School{}, school.ErrExists
		}
	}
	sch.ID = uuid.New().String()
	repo.db.school.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) QuerySchools(_ context.Context, ordering []core.DBOrdering) ([]school.School, error) {
	repo.db.school.RLock()
	defer repo.db.school.RUnlock()

	schools := make([]school.School, 0, len(repo.db.school.table))
	for _, sch := range repo.db.school.table {
		schools = append(schools, *sch)
	}
	sort.Slice(schools, func(i, j int) bool {
		a, b := schools[i], schools[j]
		if less, decided := orderedLess(ordering, func(field string) int {
			switch field {
			case "name":
				return compareStrings(a.Name, b.Name)
			case "email":
				return compareStrings(a.Email, b.Email)
			case "status":
				return compareStrings(a.Status, b.Status)
			case "city":
				return compareStrings(a.City, b.City)
			case "state":
				return compareStrings(a.State, b.State)
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt)
			case "updated_at":
				return compareTimes(a.UpdatedAt, b.UpdatedAt)
			}
			return 0
		}); decided {
			return less
		}
		return a.Name < b.Name
	})
	return schools, nil
}

func (repo *schoolRepository) GetSchool(_ context.Context, filter school.GetFilter) (school.School, error) {
	repo.db.school.RLock()
	defer repo.db.school.RUnlock()

	switch {
	case filter.ID != "":
		if sch, ok := repo.db.school.table[filter.ID]; ok {
			return *sch, nil
		}
	case filter.Email != "":
		for _, sch := range repo.db.school.table {
			if sch.Email == filter.Email {
				return *sch, nil
			}
		}
	}
	return school.School{}, school.ErrNotFound
}

func (repo *schoolRepository) UpdateSchool(_ context.Context, sch school.School) (school.School, error) {
	repo.db.school.Lock()
	defer repo.db.school.Unlock()

	if _, ok := repo.db.school.table[sch.ID]; !ok {
		return school.School{}, school.ErrNotFound
	}
	repo.db.school.table[sch.ID] = &sch
	return sch, nil
}

func (repo *schoolRepository) DeleteSchool(_ context.Context, id string) error {
	repo.db.school.Lock()
	if _, ok := repo.db.school.table[id]; !ok {
		repo.db.school.Unlock()
		return school.ErrNotFound
	}
	delete(repo.db.school.table, id)
	repo.db.school.Unlock()

	// cascade, the way the FK constraints do it
	repo.db.user.Lock()
	for uid, usr := range repo.db.user.table {
		if usr.SchoolID == id {
			delete(repo.db.user.table, uid)
		}
	}
	repo.db.user.Unlock()

	repo.db.prospect.Lock()
	for pid, pros := range repo.db.prospect.table {
		if pros.SchoolID == id {
			delete(repo.db.prospect.table, pid)
		}
	}
	repo.db.prospect.Unlock()
	return nil
}
