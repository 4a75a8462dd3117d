package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/prospect"
)

type prospectRepository struct {
	db *prospectTable
}

func NewProspectRepository(db *DB) prospect.Repository {
	return &prospectRepository{db: db.prospect}
}

func (repo *prospectRepository) CreateProspect(_ context.Context, pros prospect.Prospect) (prospect.Prospect, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pros.ID = uuid.New().String()
	repo.db.table[pros.ID] = &pros
	return pros, nil
}

func (repo *prospectRepository) QueryProspectsBySchool(_ context.Context, schoolID string, ordering []core.DBOrdering) ([]prospect.Prospect, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	prospects := make([]prospect.Prospect, 0)
	for _, pros := range repo.db.table {
		if pros.SchoolID == schoolID {
			prospects = append(prospects, *pros)
		}
	}
	sort.Slice(prospects, func(i, j int) bool {
		a, b := prospects[i], prospects[j]
		if less, decided := orderedLess(ordering, func(field string) int {
			switch field {
			case "student_name":
				return compareStrings(a.StudentName, b.StudentName)
			case "status":
				return compareStrings(a.Status, b.Status)
			case "source":
				return compareStrings(a.Source, b.Source)
			case "created_at":
				return compareTimes(a.CreatedAt, b.CreatedAt)
			case "updated_at":
				return compareTimes(a.UpdatedAt, b.UpdatedAt)
			}
			return 0
		}); decided {
			return less
		}
		return a.StudentName < b.StudentName
	})
	return prospects, nil
}

func (repo *prospectRepository) GetProspect(_ context.Context, id, schoolID string) (prospect.Prospect, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pros, ok := repo.db.table[id]; ok && pros.SchoolID == schoolID {
		return *pros, nil
	}
	return prospect.Prospect{}, prospect.ErrNotFound
}

func (repo *prospectRepository) UpdateProspect(_ context.Context, pros prospect.Prospect) (prospect.Prospect, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[pros.ID]
	if !ok || orig.SchoolID != pros.SchoolID {
		return prospect.Prospect{}, prospect.ErrNotFound
	}
	repo.db.table[pros.ID] = &pros
	return pros, nil
}

func (repo *prospectRepository) DeleteProspect(_ context.Context, id, schoolID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if pros, ok := repo.db.table[id]; ok && pros.SchoolID == schoolID {
		delete(repo.db.table, id)
		return nil
	}
	return prospect.ErrNotFound
}
