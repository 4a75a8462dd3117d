package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/schooluser"
)

type userRepository struct {
	db *userTable
}

func NewUserRepository(db *DB) schooluser.Repository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) CheckUserEmailUniqueness(_ context.Context, email string, excludedUsers ...schooluser.User) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}
	for _, usr := range repo.db.table {
		if _, skip := excluded[usr.ID]; skip {
			continue
		}
		if usr.Email == email {
			return schooluser.ErrEmailExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr schooluser.User) (schooluser.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, u := range repo.db.table {
		if u.Email == usr.Email {
			return schooluser.User{}, schooluser.ErrEmailExists
		}
	}
	usr.ID = uuid.New().String()
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) QueryUsersBySchool(_ context.Context, schoolID string, ordering []core.DBOrdering) ([]schooluser.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := make([]schooluser.User, 0)
	for _, usr := range repo.db.table {
		if usr.SchoolID == schoolID {
			users = append(users, *usr)
		}
	}
	sort.Slice(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if less, decided := orderedLess(ordering, func(field string) int {
			switch field {
			case "name":
				return compareStrings(a.Name, b.Name)
			case "email":
				return compareStrings(a.Email, b.Email)
			case "role":
				return compareStrings(a.Role, b.Role)
			case "is_active":
				return compareBools(a.IsActive, b.IsActive)
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
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter schooluser.GetFilter) (schooluser.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if usr, ok := repo.db.table[filter.ID]; ok {
			if filter.SchoolID != "" && usr.SchoolID != filter.SchoolID {
				return schooluser.User{}, schooluser.ErrNotFound
			}
			return *usr, nil
		}
	case filter.Email != "":
		for _, usr := range repo.db.table {
			if usr.Email == filter.Email {
				return *usr, nil
			}
		}
	}
	return schooluser.User{}, schooluser.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, usr schooluser.User) (schooluser.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[usr.ID]
	if !ok {
		return schooluser.User{}, schooluser.ErrNotFound
	}
	usr.SchoolID = orig.SchoolID // immutable
	repo.db.table[usr.ID] = &usr
	return usr, nil
}

func (repo *userRepository) DeleteUser(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return schooluser.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}
