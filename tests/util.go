package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/maskot/crm/core/admin"
	"github.com/maskot/crm/core/prospect"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
)

func CreateAdmin(
	t *testing.T,
	repo admin.Repository,
	name, email, pwd string,
) admin.Admin {
	tstamp := time.Now().UTC()
	adm := admin.Admin{
		Name:      name,
		Email:     email,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := adm.SetPassword(pwd); err != nil {
			t.Fatalf("createAdmin() failed: %v", err)
		}
	}
	adm, err := repo.CreateAdmin(context.Background(), adm)
	if err != nil {
		t.Fatalf("createAdmin() failed: %v", err)
	}
	return adm
}

func CreateSchool(
	t *testing.T,
	repo school.Repository,
	name, email, taxID string,
	createdAt ...time.Time,
) school.School {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	sch := school.School{
		Name:      name,
		Email:     email,
		TaxID:     taxID,
		Status:    school.StatusActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	sch, err := repo.CreateSchool(context.Background(), sch)
	if err != nil {
		t.Fatalf("createSchool() failed: %v", err)
	}
	return sch
}

func CreateUser(
	t *testing.T,
	repo schooluser.Repository,
	schoolID, name, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) schooluser.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := schooluser.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  isActive,
		SchoolID:  schoolID,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateProspect(
	t *testing.T,
	repo prospect.Repository,
	schoolID, studentName, status string,
	createdAt ...time.Time,
) prospect.Prospect {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if status == "" {
		status = prospect.StatusNewContact
	}
	pros := prospect.Prospect{
		StudentName: studentName,
		Status:      status,
		SchoolID:    schoolID,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	}
	pros, err := repo.CreateProspect(context.Background(), pros)
	if err != nil {
		t.Fatalf("createProspect() failed: %v", err)
	}
	return pros
}
