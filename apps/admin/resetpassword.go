package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) resetPassword(email, pwd string) error {
	ctx := context.Background()
	usr, err := cli.usrSvc.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if err = cli.usrSvc.SetPassword(ctx, usr.ID, pwd); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Password of %s updated\n", usr.Email)
	return nil
}
