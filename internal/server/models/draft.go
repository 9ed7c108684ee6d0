package models

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophident/internal/common"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// UserDraft carries everything needed to create an account. Password is
// plaintext and is hashed before it reaches storage.
type UserDraft struct {
	UserName    string
	Email       string
	Password    string
	FirstName   *string
	LastName    *string
	Preferences *string
	IsSuperuser bool
}

// Normalize trims surrounding whitespace from the identifying fields.
func (d UserDraft) Normalize() UserDraft {
	d.UserName = strings.TrimSpace(d.UserName)
	d.Email = strings.TrimSpace(d.Email)
	return d
}

// Validate checks the draft and wraps failures in common.ErrorValidation.
func (d UserDraft) Validate() error {
	err := validation.ValidateStruct(&d,
		validation.Field(&d.UserName, userNameRules()...),
		validation.Field(&d.Email, emailRules()...),
		validation.Field(&d.Password, validation.Required),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

// UserPatch is a partial update. Only fields with Set == true are applied.
type UserPatch struct {
	UserName    Optional[string]
	Email       Optional[string]
	Password    Optional[string]
	FirstName   Optional[*string]
	LastName    Optional[*string]
	IsSuperuser Optional[bool]
	IsActive    Optional[bool]
	IsReported  Optional[bool]
	IsBlocked   Optional[bool]
	Preferences Optional[*string]
}

// Normalize trims surrounding whitespace from the identifying fields.
func (p UserPatch) Normalize() UserPatch {
	if p.UserName.Set {
		p.UserName.Value = strings.TrimSpace(p.UserName.Value)
	}
	if p.Email.Set {
		p.Email.Value = strings.TrimSpace(p.Email.Value)
	}
	return p
}

// Validate checks the present fields only.
func (p UserPatch) Validate() error {
	errs := validation.Errors{}
	if p.UserName.Set {
		errs["username"] = validation.Validate(p.UserName.Value, userNameRules()...)
	}
	if p.Email.Set {
		errs["email"] = validation.Validate(p.Email.Value, emailRules()...)
	}
	if p.Password.Set {
		errs["password"] = validation.Validate(p.Password.Value, validation.Required)
	}
	if err := errs.Filter(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrorValidation, err)
	}
	return nil
}

// ChangesIdentity reports whether the patch touches a unique column.
func (p UserPatch) ChangesIdentity() bool {
	return p.UserName.Set || p.Email.Set
}

// TouchesPrivileges reports whether the patch sets any moderation or role flag.
func (p UserPatch) TouchesPrivileges() bool {
	return p.IsSuperuser.Set || p.IsActive.Set || p.IsReported.Set || p.IsBlocked.Set
}

// ApplyPatch returns a copy of u with the present fields of p written over it.
// Password is not handled here: the caller derives digest and salt and calls
// SetPassword on the result.
func ApplyPatch(u User, p UserPatch) User {
	u.UserName = p.UserName.Or(u.UserName)
	u.Email = p.Email.Or(u.Email)
	u.FirstName = p.FirstName.Or(u.FirstName)
	u.LastName = p.LastName.Or(u.LastName)
	u.IsSuperuser = p.IsSuperuser.Or(u.IsSuperuser)
	u.IsActive = p.IsActive.Or(u.IsActive)
	u.IsReported = p.IsReported.Or(u.IsReported)
	u.IsBlocked = p.IsBlocked.Or(u.IsBlocked)
	u.Preferences = p.Preferences.Or(u.Preferences)
	return u
}

func userNameRules() []validation.Rule {
	return []validation.Rule{validation.Required, validation.RuneLength(1, common.MaxUserNameLength)}
}

func emailRules() []validation.Rule {
	return []validation.Rule{validation.Required, is.Email}
}
