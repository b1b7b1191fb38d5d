package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core/form"
)

func timePtr(v form.Values, name string) *time.Time {
	if !v.Has(name) {
		return nil
	}
	t := v.Time(name)
	return &t
}

// LoginSchema describes the login form.
func LoginSchema() form.Schema[Credentials] {
	return form.Schema[Credentials]{
		Fields: []form.Field{
			{Name: "email", Kind: form.Email, Required: true},
			{Name: "password", Kind: form.String, Required: true, Hidden: true, Raw: true},
		},
		Build: func(v form.Values) Credentials {
			return Credentials{Email: v.String("email"), Password: v.String("password")}
		},
	}
}

// PasswordResetRequestSchema describes the "forgot my password" form.
func PasswordResetRequestSchema() form.Schema[string] {
	return form.Schema[string]{
		Fields: []form.Field{{Name: "email", Kind: form.Email, Required: true}},
		Build:  func(v form.Values) string { return v.String("email") },
	}
}

func ResetPasswordSchema() form.Schema[ResetPassword] {
	return form.Schema[ResetPassword]{
		Fields: []form.Field{
			{Name: "token", Kind: form.String, Required: true},
			{Name: "password", Kind: form.String, Required: true, Hidden: true, Raw: true},
			{Name: "password_confirm", Kind: form.String, Required: true, Hidden: true, Raw: true},
		},
		Build: func(v form.Values) ResetPassword {
			return ResetPassword{
				Token:           v.String("token"),
				Password:        v.String("password"),
				PasswordConfirm: v.String("password_confirm"),
			}
		},
		Check: []func(ResetPassword) form.Errors{
			func(rp ResetPassword) form.Errors {
				errs := make(form.Errors)
				if msg := checkPassword(rp.Password); msg != "" {
					errs.Add("password", msg)
				}
				if rp.Password != rp.PasswordConfirm {
					errs.Add("password_confirm", pwdMismatchText)
				}
				return errs
			},
		},
	}
}

// NewUserSchema describes the form creating a user with the given role.
func (svc *service) NewUserSchema(role string) form.Schema[NewUser] {
	return form.Schema[NewUser]{
		Fields: []form.Field{
			{Name: "name", Kind: form.String, Required: true, Rules: "max=64"},
			{Name: "lastname", Kind: form.String, Required: true, Rules: "max=64"},
			{Name: "email", Kind: form.Email, Required: true, Rules: "max=128"},
			{Name: "password", Kind: form.String, Required: true, Hidden: true, Raw: true},
			{Name: "password_confirm", Kind: form.String, Required: true, Hidden: true, Raw: true},
			{Name: "birthdate", Kind: form.Date},
			{Name: "phone_number", Kind: form.String, Rules: "phone"},
			{Name: "profile_picture", Kind: form.String, Rules: "url"},
			{Name: "instrumentId", Kind: form.IntList},
		},
		Build: func(v form.Values) NewUser {
			return NewUser{
				Name:            v.String("name"),
				Lastname:        v.String("lastname"),
				Email:           v.String("email"),
				Role:            role,
				Password:        v.String("password"),
				PasswordConfirm: v.String("password_confirm"),
				Birthdate:       timePtr(v, "birthdate"),
				PhoneNumber:     v.String("phone_number"),
				ProfilePicture:  v.String("profile_picture"),
				InstrumentIDs:   v.IntList("instrumentId"),
			}
		},
		Check: []func(NewUser) form.Errors{
			func(nu NewUser) form.Errors {
				errs := make(form.Errors)
				if msg := checkPassword(nu.Password, nu.Name, nu.Lastname, nu.Email); msg != "" {
					errs.Add("password", msg)
				}
				if nu.Password != nu.PasswordConfirm {
					errs.Add("password_confirm", pwdMismatchText)
				}
				return errs
			},
		},
		Refine: []form.Refinement[NewUser]{
			func(ctx context.Context, nu NewUser) (form.Errors, error) {
				return svc.uniqueEmail(ctx, nu.Email)
			},
		},
	}
}

// UpdateUserSchema describes the form editing a user; only the id is required.
func (svc *service) UpdateUserSchema() form.Schema[UpdateUser] {
	return form.Schema[UpdateUser]{
		Fields: []form.Field{
			{Name: "member-id", Kind: form.Int, Required: true},
			{Name: "name", Kind: form.String, Rules: "max=64"},
			{Name: "lastname", Kind: form.String, Rules: "max=64"},
			{Name: "email", Kind: form.Email, Rules: "max=128"},
			{Name: "password", Kind: form.String, Hidden: true, Raw: true},
			{Name: "password_confirm", Kind: form.String, Hidden: true, Raw: true},
			{Name: "birthdate", Kind: form.Date},
			{Name: "phone_number", Kind: form.String, Rules: "phone"},
			{Name: "profile_picture", Kind: form.String, Rules: "url"},
			{Name: "instrumentId", Kind: form.IntList},
		},
		Build: func(v form.Values) UpdateUser {
			return UpdateUser{
				ID:              v.Int("member-id"),
				Name:            v.String("name"),
				Lastname:        v.String("lastname"),
				Email:           v.String("email"),
				Birthdate:       timePtr(v, "birthdate"),
				PhoneNumber:     v.String("phone_number"),
				ProfilePicture:  v.String("profile_picture"),
				Password:        v.String("password"),
				PasswordConfirm: v.String("password_confirm"),
				InstrumentIDs:   v.IntList("instrumentId"),
				SetInstruments:  v.Has("instrumentId"),
			}
		},
		Check: []func(UpdateUser) form.Errors{
			func(uu UpdateUser) form.Errors {
				errs := make(form.Errors)
				if uu.Password == "" && uu.PasswordConfirm == "" {
					return errs
				}
				if msg := checkPassword(uu.Password, uu.Name, uu.Lastname, uu.Email); msg != "" {
					errs.Add("password", msg)
				}
				if uu.Password != uu.PasswordConfirm {
					errs.Add("password_confirm", pwdMismatchText)
				}
				return errs
			},
		},
		Refine: []form.Refinement[UpdateUser]{
			func(ctx context.Context, uu UpdateUser) (form.Errors, error) {
				if uu.Email == "" {
					return nil, nil
				}
				return svc.uniqueEmail(ctx, uu.Email, uu.ID)
			},
		},
	}
}

func (svc *service) uniqueEmail(ctx context.Context, email string, excludedIDs ...int) (form.Errors, error) {
	err := svc.repo.CheckEmailUniqueness(ctx, email, excludedIDs...)
	switch errors.Cause(err) {
	case nil:
		return nil, nil
	case ErrEmailExists:
		return form.Errors{"email": {emailExistsText}}, nil
	default:
		return nil, errors.Wrap(err, "checking email uniqueness")
	}
}

// DeleteSchema reads the repeated memberId field of a bulk deletion.
func DeleteSchema() form.Schema[[]int] {
	return form.Schema[[]int]{
		Fields: []form.Field{{Name: "memberId", Kind: form.IntList}},
		Build:  func(v form.Values) []int { return v.IntList("memberId") },
	}
}
