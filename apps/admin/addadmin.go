package main

import (
	"context"
	"time"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/admin"
)

// addAdmin updates or creates a platform admin. This is the production path
// for bootstrapping the first SUPER_ADMIN account.
func (cli *commandLine) addAdmin(name, email, pwd string) error {
	ctx := context.Background()
	name = core.CleanString(name)
	email = core.CleanString(email, true /* lower */)

	adm, err := cli.adminRepo.GetAdmin(ctx, admin.GetFilter{Email: email})
	if err != nil {
		if err != admin.ErrNotFound {
			return err
		}
		now := time.Now().UTC()
		adm = admin.Admin{
			Name:      name,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := adm.SetPassword(pwd); err != nil {
			return err
		}
		_, err = cli.adminRepo.CreateAdmin(ctx, adm)
		return err
	}

	adm.Name = name
	adm.UpdatedAt = time.Now().UTC()
	if err := adm.SetPassword(pwd); err != nil {
		return err
	}
	_, err = cli.adminRepo.UpdateAdmin(ctx, adm)
	return err
}
