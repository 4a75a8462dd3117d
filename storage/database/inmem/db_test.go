package inmemdb_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maskot/crm/core"
	"github.com/maskot/crm/core/prospect"
	"github.com/maskot/crm/core/school"
	"github.com/maskot/crm/core/schooluser"
	inmemdb "github.com/maskot/crm/storage/database/inmem"
)

func newUser(schoolID, name, email, role string) schooluser.User {
	now := time.Now().UTC()
	return schooluser.User{
		Name:      name,
		Email:     email,
		Role:      role,
		IsActive:  true,
		SchoolID:  schoolID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func Test_userRepository_emailUniqueness(t *testing.T) {
	ctx := context.Background()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)

	ana, err := repo.CreateUser(ctx, newUser("school-1", "Ana", "ana@test.cd", schooluser.RoleTeacher))
	require.NoError(t, err)
	require.NotEmpty(t, ana.ID)

	// email is unique across the whole system, school-2 cannot reuse it
	_, err = repo.CreateUser(ctx, newUser("school-2", "Ana II", "ana@test.cd", schooluser.RoleStaff))
	assert.Equal(t, schooluser.ErrEmailExists, err)

	err = repo.CheckUserEmailUniqueness(ctx, "ana@test.cd")
	assert.Equal(t, schooluser.ErrEmailExists, err)

	// the owner is excluded when checking its own update
	err = repo.CheckUserEmailUniqueness(ctx, "ana@test.cd", ana)
	assert.NoError(t, err)
}

func Test_userRepository_tenantScoping(t *testing.T) {
	ctx := context.Background()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewUserRepository(db)

	ana, err := repo.CreateUser(ctx, newUser("school-1", "Ana", "ana@test.cd", schooluser.RoleTeacher))
	require.NoError(t, err)

	// an id from another school is simply not found
	_, err = repo.GetUser(ctx, schooluser.GetFilter{ID: ana.ID, SchoolID: "school-2"})
	assert.Equal(t, schooluser.ErrNotFound, err)

	got, err := repo.GetUser(ctx, schooluser.GetFilter{ID: ana.ID, SchoolID: "school-1"})
	require.NoError(t, err)
	assert.Equal(t, ana.Email, got.Email)

	// SchoolID never moves on update
	got.SchoolID = "school-2"
	updated, err := repo.UpdateUser(ctx, got)
	require.NoError(t, err)
	assert.Equal(t, "school-1", updated.SchoolID)
}

func Test_schoolRepository_deleteCascades(t *testing.T) {
	ctx := context.Background()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	schoolRepo := inmemdb.NewSchoolRepository(db)
	usrRepo := inmemdb.NewUserRepository(db)
	prosRepo := inmemdb.NewProspectRepository(db)

	now := time.Now().UTC()
	sch, err := schoolRepo.CreateSchool(ctx, school.School{
		Name: "Escola Alfa", Email: "alfa@test.cd", Status: school.StatusActive, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	usr, err := usrRepo.CreateUser(ctx, newUser(sch.ID, "Ana", "ana@test.cd", schooluser.RoleTeacher))
	require.NoError(t, err)
	pros, err := prosRepo.CreateProspect(ctx, prospect.Prospect{
		StudentName: "Joãozinho", Status: prospect.StatusNewContact, SchoolID: sch.ID, CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(t, err)

	require.NoError(t, schoolRepo.DeleteSchool(ctx, sch.ID))

	_, err = schoolRepo.GetSchool(ctx, school.GetFilter{ID: sch.ID})
	assert.Equal(t, school.ErrNotFound, err)
	_, err = usrRepo.GetUser(ctx, schooluser.GetFilter{ID: usr.ID})
	assert.Equal(t, schooluser.ErrNotFound, err)
	_, err = prosRepo.GetProspect(ctx, pros.ID, sch.ID)
	assert.Equal(t, prospect.ErrNotFound, err)
}

func Test_prospectRepository_ordering(t *testing.T) {
	ctx := context.Background()
	db, err := inmemdb.Open()
	require.NoError(t, err)
	repo := inmemdb.NewProspectRepository(db)

	now := time.Now().UTC()
	mk := func(name, status string, updatedAt time.Time) prospect.Prospect {
		pros, err := repo.CreateProspect(ctx, prospect.Prospect{
			StudentName: name, Status: status, SchoolID: "school-1", CreatedAt: now, UpdatedAt: updatedAt,
		})
		require.NoError(t, err)
		return pros
	}
	enrolled := mk("Carlos", prospect.StatusEnrolled, now)
	newOld := mk("Ana", prospect.StatusNewContact, now.Add(-2*time.Hour))
	newRecent := mk("Beto", prospect.StatusNewContact, now.Add(-time.Hour))

	ordering := []core.DBOrdering{
		{Field: "status", Ascending: true},
		{Field: "updated_at", Ascending: false},
	}
	prospects, err := repo.QueryProspectsBySchool(ctx, "school-1", ordering)
	require.NoError(t, err)
	require.Len(t, prospects, 3)
	assert.Equal(t, []string{enrolled.ID, newRecent.ID, newOld.ID},
		[]string{prospects[0].ID, prospects[1].ID, prospects[2].ID})

	byName, err := repo.QueryProspectsBySchool(ctx, "school-1", []core.DBOrdering{{Field: "student_name", Ascending: true}})
	require.NoError(t, err)
	assert.Equal(t, "Ana", byName[0].StudentName)
}
