package main

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/user"
)

// addUser creates the user owning email, or updates it when it already exists.
func (cli *commandLine) addUser(email, name, lastname, role, pwd string) error {
	ctx := context.Background()
	email = core.CleanString(email, true /* lower */)
	name = core.CleanString(name)
	lastname = core.CleanString(lastname)

	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) != user.ErrNotFound {
			return err
		}
		usr, err = cli.usrSvc.Create(ctx, user.NewUser{
			Name:     name,
			Lastname: lastname,
			Email:    email,
			Role:     role,
			Password: pwd,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "Created %s %d\n", role, usr.ID)
		return nil
	}

	usr.Name, usr.Lastname, usr.Role = name, lastname, role
	usr.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	if _, err = cli.users.UpdateUser(ctx, usr); err != nil {
		return errors.Wrap(err, "updating user")
	}
	if err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Updated %s %d\n", role, usr.ID)
	return nil
}
