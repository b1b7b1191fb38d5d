package user

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tdm/core"
	"github.com/trezcool/tdm/core/form"
)

var (
	// errors
	ErrNotFound             = errors.New("user not found")
	ErrCredentialNotFound   = errors.New("credential not found")
	ErrEmailExists          = errors.New("a user with this email already exists")
	ErrAuthenticationFailed = errors.New("Correo electrónico o contraseña incorrectos")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedIDs ...int) error
		// CreateUser inserts usr and its credential in one transaction.
		CreateUser(ctx context.Context, usr User, pwdHash []byte) (User, error)
		GetUserByID(ctx context.Context, id int) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		GetCredential(ctx context.Context, userID int) (Credential, error)
		SetCredential(ctx context.Context, cred Credential) error
		QueryUsers(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		UpdateUser(ctx context.Context, usr User) (User, error)
		SetUserInstruments(ctx context.Context, userID int, instrumentIDs []int) error
		// DeleteUsersByID deletes the users of role among ids and returns the deleted ids.
		DeleteUsersByID(ctx context.Context, role string, ids ...int) ([]int, error)
	}

	Service interface {
		NewUserSchema(role string) form.Schema[NewUser]
		UpdateUserSchema() form.Schema[UpdateUser]

		Authenticate(ctx context.Context, creds Credentials) (Identity, error)
		Create(ctx context.Context, nu NewUser) (User, error)
		Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error)
		GetByID(ctx context.Context, id int) (User, error)
		GetByEmail(ctx context.Context, email string) (User, error)
		// Update edits the user of role with uu.ID; ErrNotFound when there is none.
		Update(ctx context.Context, role string, uu UpdateUser) (User, error)
		SetPassword(ctx context.Context, id int, pwd string) error
		Delete(ctx context.Context, role string, ids ...int) ([]int, error)
		RequestPasswordReset(ctx context.Context, email string) error
		ResetPassword(ctx context.Context, rp ResetPassword) error
	}

	service struct {
		repo    Repository
		mailSvc core.EmailService
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, mailSvc core.EmailService, conf *core.Config) Service {
	return &service{repo: repo, mailSvc: mailSvc, conf: conf}
}

// Authenticate checks creds against the stored credential. Every failure cause yields
// ErrAuthenticationFailed and costs one bcrypt comparison.
func (svc *service) Authenticate(ctx context.Context, creds Credentials) (Identity, error) {
	usr, err := svc.repo.GetUserByEmail(ctx, core.CleanString(creds.Email, true /* lower */))
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			burnCompare(creds.Password)
			return Identity{}, ErrAuthenticationFailed
		}
		return Identity{}, errors.Wrap(err, "finding user by email")
	}

	cred, err := svc.repo.GetCredential(ctx, usr.ID)
	if err != nil {
		if errors.Cause(err) == ErrCredentialNotFound {
			burnCompare(creds.Password)
			return Identity{}, ErrAuthenticationFailed
		}
		return Identity{}, errors.Wrap(err, "finding credential")
	}

	if err = cred.Verify(creds.Password); err != nil {
		return Identity{}, ErrAuthenticationFailed
	}
	return usr.Identity(), nil
}

func (svc *service) Create(ctx context.Context, nu NewUser) (User, error) {
	if !IsValidRole(nu.Role) {
		return User{}, errors.Errorf("invalid role %q", nu.Role)
	}
	cred, err := NewCredential(0, nu.Password)
	if err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}

	now := time.Now().UTC().Truncate(time.Second)
	usr := User{
		Name:           nu.Name,
		Lastname:       nu.Lastname,
		Email:          core.CleanString(nu.Email, true /* lower */),
		Role:           nu.Role,
		Birthdate:      nu.Birthdate,
		PhoneNumber:    nu.PhoneNumber,
		ProfilePicture: nu.ProfilePicture,
		InstrumentIDs:  nu.InstrumentIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	usr, err = svc.repo.CreateUser(ctx, usr, cred.Hash)
	return usr, trapEmailExists(err)
}

// trapEmailExists turns a unique email violation into a field error.
func trapEmailExists(err error) error {
	if errors.Cause(err) == ErrEmailExists {
		return core.NewFieldError("email", emailExistsText)
	}
	return err
}

func (svc *service) Query(ctx context.Context, filter QueryFilter, ordering []core.DBOrdering) ([]User, error) {
	filter.Clean()
	return svc.repo.QueryUsers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.GetUserByID(ctx, id)
}

func (svc *service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (svc *service) Update(ctx context.Context, role string, uu UpdateUser) (User, error) {
	usr, err := svc.repo.GetUserByID(ctx, uu.ID)
	if err != nil {
		return User{}, err
	}
	if role != "" && usr.Role != role {
		return User{}, ErrNotFound
	}

	if uu.Name != "" {
		usr.Name = uu.Name
	}
	if uu.Lastname != "" {
		usr.Lastname = uu.Lastname
	}
	if uu.Email != "" {
		usr.Email = core.CleanString(uu.Email, true /* lower */)
	}
	if uu.Birthdate != nil {
		usr.Birthdate = uu.Birthdate
	}
	if uu.PhoneNumber != "" {
		usr.PhoneNumber = uu.PhoneNumber
	}
	if uu.ProfilePicture != "" {
		usr.ProfilePicture = uu.ProfilePicture
	}
	usr.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
		return User{}, trapEmailExists(err)
	}
	if uu.SetInstruments {
		if err = svc.repo.SetUserInstruments(ctx, usr.ID, uu.InstrumentIDs); err != nil {
			return User{}, errors.Wrap(err, "setting instruments")
		}
		usr.InstrumentIDs = uu.InstrumentIDs
	}
	if uu.Password != "" {
		if err = svc.SetPassword(ctx, usr.ID, uu.Password); err != nil {
			return User{}, err
		}
	}
	return usr, nil
}

func (svc *service) SetPassword(ctx context.Context, id int, pwd string) error {
	cred, err := NewCredential(id, pwd)
	if err != nil {
		return errors.Wrap(err, "hashing password")
	}
	return svc.repo.SetCredential(ctx, cred)
}

func (svc *service) Delete(ctx context.Context, role string, ids ...int) ([]int, error) {
	ids = core.UniqueInts(ids)
	if len(ids) == 0 {
		return []int{}, nil
	}
	return svc.repo.DeleteUsersByID(ctx, role, ids...)
}

// RequestPasswordReset mails a reset link to the owner of email. ErrNotFound is returned when
// nobody owns it; callers must not reveal it.
func (svc *service) RequestPasswordReset(ctx context.Context, email string) error {
	msg, err := svc.passwordResetMessage(ctx, email)
	if err != nil {
		return err
	}
	svc.mailSvc.SendMessages(msg)
	return nil
}

func (svc *service) passwordResetMessage(ctx context.Context, email string) (*core.EmailMessage, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	cred, err := svc.repo.GetCredential(ctx, usr.ID)
	if err != nil {
		return nil, errors.Wrap(err, "finding credential")
	}
	token, err := makeToken(cred, svc.conf.SessionSecret, svc.conf.PasswordResetTimeoutDelta)
	if err != nil {
		return nil, err
	}

	msg := &core.EmailMessage{
		To:           []mail.Address{{Name: usr.Identity().FullName(), Address: usr.Email}},
		Subject:      "Restablecer contraseña",
		TemplateName: "password_reset",
		TemplateData: map[string]string{
			"Name":  usr.Name,
			"Email": usr.Email,
			"Token": token,
		},
	}
	return msg, nil
}

func (svc *service) ResetPassword(ctx context.Context, rp ResetPassword) error {
	id, _, err := tokenUserID(rp.Token, svc.conf.SessionSecret)
	if err != nil {
		return core.NewFieldError("token", err.Error())
	}
	cred, err := svc.repo.GetCredential(ctx, id)
	if err != nil {
		if errors.Cause(err) == ErrCredentialNotFound {
			return core.NewFieldError("token", errInvalidToken.Error())
		}
		return errors.Wrap(err, "finding credential")
	}
	if err = verifyToken(cred, rp.Token, svc.conf.SessionSecret); err != nil {
		return core.NewFieldError("token", err.Error())
	}
	return svc.SetPassword(ctx, id, rp.Password)
}
