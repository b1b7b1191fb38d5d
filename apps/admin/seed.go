package main

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/classroom"
	"github.com/trezcool/tdm/core/instrument"
	"github.com/trezcool/tdm/core/lesson"
	"github.com/trezcool/tdm/core/user"
)

const seedPassword = "password"

var (
	seedClassrooms = []string{
		"A Domicilio", "Chopin", "DJ", "En Línea", "Jaco Pastorius", "Joe Pass", "John Coltrane",
		"Louis Armstrong", "Mozart", "Pat Matheny", "Petruccini", "Quincy Jones", "Ray Charles", "Steve Gadd",
	}
	seedInstruments = []string{
		"Armónica", "Bajo", "Batería", "Batería Kids", "Canto", "DJ", "Estimulación Temprana", "Grabación",
		"Guitarra Acústica", "Guitarra Acústica Kids", "Guitarra Eléctrica", "Guitarra Eléctrica Kids",
		"Iniciación Musical", "Iniciación Musical Piano", "Piano", "Piano Kids", "Producción Musical",
		"Saxofón", "Teoría Musical", "Trompeta", "Violín",
	}
	seedUsers = []user.NewUser{
		{Name: "Admin", Lastname: "Admin", Email: "admin@admin.com", Role: user.RoleAdmin},
		{Name: "Employee", Lastname: "Employee", Email: "employee@employee.com", Role: user.RoleEmployee},
		{Name: "Student", Lastname: "Student", Email: "student@student.com", Role: user.RoleStudent},
		{Name: "Teacher", Lastname: "Teacher", Email: "teacher@teacher.com", Role: user.RoleTeacher},
	}
)

// seed wipes lessons, classrooms, instruments and users, then inserts the demo data set.
// Every seeded user signs in with seedPassword.
func (cli *commandLine) seed() error {
	ctx := context.Background()
	if err := cli.wipe(ctx); err != nil {
		return err
	}

	for _, name := range seedClassrooms {
		if _, err := cli.classrooms.Create(ctx, classroom.NewClassroom{Name: name}); err != nil {
			return errors.Wrapf(err, "seeding classroom %q", name)
		}
	}
	fmt.Fprintf(cli.out, "Inserted: %d classrooms\n", len(seedClassrooms))

	for _, name := range seedInstruments {
		if _, err := cli.instruments.Create(ctx, instrument.NewInstrument{Name: name}); err != nil {
			return errors.Wrapf(err, "seeding instrument %q", name)
		}
	}
	fmt.Fprintf(cli.out, "Inserted: %d instruments\n", len(seedInstruments))

	for _, nu := range seedUsers {
		nu.Password = seedPassword
		if _, err := cli.usrSvc.Create(ctx, nu); err != nil {
			return errors.Wrapf(err, "seeding user %q", nu.Email)
		}
	}
	fmt.Fprintf(cli.out, "Inserted: %d users\n", len(seedUsers))
	return nil
}

func (cli *commandLine) wipe(ctx context.Context) error {
	lessons, err := cli.lessons.QueryLessons(ctx, lesson.QueryFilter{})
	if err != nil {
		return errors.Wrap(err, "querying lessons")
	}
	ids := make([]int, 0, len(lessons))
	for _, l := range lessons {
		ids = append(ids, l.ID)
	}
	if len(ids) > 0 {
		if _, err = cli.lessons.DeleteLessonsByID(ctx, ids...); err != nil {
			return errors.Wrap(err, "deleting lessons")
		}
	}
	fmt.Fprintf(cli.out, "Deleted: %d lessons\n", len(ids))

	classrooms, err := cli.classrooms.Query(ctx)
	if err != nil {
		return errors.Wrap(err, "querying classrooms")
	}
	ids = ids[:0]
	for _, c := range classrooms {
		ids = append(ids, c.ID)
	}
	deleted, err := cli.classrooms.DeleteMany(ctx, ids...)
	if err != nil {
		return errors.Wrap(err, "deleting classrooms")
	}
	fmt.Fprintf(cli.out, "Deleted: %d classrooms\n", len(deleted))

	instruments, err := cli.instruments.Query(ctx)
	if err != nil {
		return errors.Wrap(err, "querying instruments")
	}
	ids = ids[:0]
	for _, i := range instruments {
		ids = append(ids, i.ID)
	}
	if deleted, err = cli.instruments.DeleteMany(ctx, ids...); err != nil {
		return errors.Wrap(err, "deleting instruments")
	}
	fmt.Fprintf(cli.out, "Deleted: %d instruments\n", len(deleted))

	var count int
	for _, role := range user.AllRoles {
		users, err := cli.usrSvc.Query(ctx, user.QueryFilter{Role: role}, nil)
		if err != nil {
			return errors.Wrap(err, "querying users")
		}
		ids = ids[:0]
		for _, u := range users {
			ids = append(ids, u.ID)
		}
		if deleted, err = cli.usrSvc.Delete(ctx, role, ids...); err != nil {
			return errors.Wrap(err, "deleting users")
		}
		count += len(deleted)
	}
	fmt.Fprintf(cli.out, "Deleted: %d users\n", count)
	return nil
}
