package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/maskot/crm/core/admin"
)

type adminRepository struct {
	db *adminTable
}

func NewAdminRepository(db *DB) admin.Repository {
	return &adminRepository{db: db.admin}
}

func (repo *adminRepository) CheckAdminEmailUniqueness(_ context.Context, email string, excludedAdmins ...admin.Admin) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedAdmins))
	for _, adm := range excludedAdmins {
		excluded[adm.ID] = struct{}{}
	}
	for _, adm := range repo.db.table {
		if _, skip := excluded[adm.ID]; skip {
			continue
		}
		if adm.Email == email {
			return admin.ErrEmailExists
		}
	}
	return nil
}

func (repo *adminRepository) CreateAdmin(_ context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, a := range repo.db.table {
		if a.Email == adm.Email {
			return admin.Admin{}, admin.ErrEmailExists
		}
	}
	adm.ID = uuid.New().String()
	repo.db.table[adm.ID] = &adm
	return adm, nil
}

func (repo *adminRepository) GetAdmin(_ context.Context, filter admin.GetFilter) (admin.Admin, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if adm, ok := repo.db.table[filter.ID]; ok {
			return *adm, nil
		}
	case filter.Email != "":
		for _, adm := range repo.db.table {
			if adm.Email == filter.Email {
				return *adm, nil
			}
		}
	}
	return admin.Admin{}, admin.ErrNotFound
}

func (repo *adminRepository) UpdateAdmin(_ context.Context, adm admin.Admin) (admin.Admin, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[adm.ID]; !ok {
		return admin.Admin{}, admin.ErrNotFound
	}
	repo.db.table[adm.ID] = &adm
	return adm, nil
}
