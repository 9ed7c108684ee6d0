package grpc

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dmitrijs2005/gophident/internal/common"
	"github.com/dmitrijs2005/gophident/internal/server/models"
	"google.golang.org/protobuf/types/known/structpb"
)

// userToStruct projects a user for clients. The password digest and salt
// are never included.
func userToStruct(u *models.User) *structpb.Struct {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"id":           structpb.NewStringValue(u.ID),
		"username":     structpb.NewStringValue(u.UserName),
		"email":        structpb.NewStringValue(u.Email),
		"first_name":   nullableString(u.FirstName),
		"last_name":    nullableString(u.LastName),
		"is_superuser": structpb.NewBoolValue(u.IsSuperuser),
		"is_active":    structpb.NewBoolValue(u.IsActive),
		"is_reported":  structpb.NewBoolValue(u.IsReported),
		"is_blocked":   structpb.NewBoolValue(u.IsBlocked),
		"preferences":  nullableString(u.Preferences),
		"created_at":   structpb.NewStringValue(u.CreatedAt.UTC().Format(time.RFC3339Nano)),
		"updated_at":   structpb.NewStringValue(u.UpdatedAt.UTC().Format(time.RFC3339Nano)),
	}}
}

func usersToStruct(list []*models.User) *structpb.Struct {
	values := make([]*structpb.Value, 0, len(list))
	for _, u := range list {
		values = append(values, structpb.NewStructValue(userToStruct(u)))
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"users": structpb.NewListValue(&structpb.ListValue{Values: values}),
	}}
}

func nullableString(s *string) *structpb.Value {
	if s == nil {
		return structpb.NewNullValue()
	}
	return structpb.NewStringValue(*s)
}

// fields wraps a request document with typed accessors. Every accessor
// records the key as known; rejectUnknown then fails on anything else.
type fields struct {
	m     map[string]*structpb.Value
	known map[string]bool
}

func newFields(s *structpb.Struct) *fields {
	f := &fields{m: map[string]*structpb.Value{}, known: map[string]bool{}}
	if s != nil && s.Fields != nil {
		f.m = s.Fields
	}
	return f
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", common.ErrorValidation, fmt.Sprintf(format, args...))
}

func (f *fields) lookup(key string) (*structpb.Value, bool) {
	f.known[key] = true
	v, ok := f.m[key]
	return v, ok
}

func (f *fields) getString(key string) (models.Optional[string], error) {
	v, ok := f.lookup(key)
	if !ok {
		return models.None[string](), nil
	}
	s, ok := v.GetKind().(*structpb.Value_StringValue)
	if !ok {
		return models.None[string](), invalid("%s must be a string", key)
	}
	return models.Some(s.StringValue), nil
}

// getNullableString accepts a string or null; null clears the field.
func (f *fields) getNullableString(key string) (models.Optional[*string], error) {
	v, ok := f.lookup(key)
	if !ok {
		return models.None[*string](), nil
	}
	switch k := v.GetKind().(type) {
	case *structpb.Value_NullValue:
		return models.Some[*string](nil), nil
	case *structpb.Value_StringValue:
		s := k.StringValue
		return models.Some(&s), nil
	default:
		return models.None[*string](), invalid("%s must be a string or null", key)
	}
}

func (f *fields) getBool(key string) (models.Optional[bool], error) {
	v, ok := f.lookup(key)
	if !ok {
		return models.None[bool](), nil
	}
	b, ok := v.GetKind().(*structpb.Value_BoolValue)
	if !ok {
		return models.None[bool](), invalid("%s must be a boolean", key)
	}
	return models.Some(b.BoolValue), nil
}

func (f *fields) getInt(key string) (models.Optional[int], error) {
	v, ok := f.lookup(key)
	if !ok {
		return models.None[int](), nil
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue < 0 || n.NumberValue > math.MaxInt32 {
		return models.None[int](), invalid("%s must be a non-negative integer", key)
	}
	return models.Some(int(n.NumberValue)), nil
}

func (f *fields) rejectUnknown() error {
	var unknown []string
	for k := range f.m {
		if !f.known[k] {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return invalid("unknown fields %v", unknown)
	}
	return nil
}

func draftFromStruct(s *structpb.Struct) (models.UserDraft, error) {
	f := newFields(s)
	var d models.UserDraft

	userName, err := f.getString("username")
	if err != nil {
		return d, err
	}
	email, err := f.getString("email")
	if err != nil {
		return d, err
	}
	password, err := f.getString("password")
	if err != nil {
		return d, err
	}
	firstName, err := f.getNullableString("first_name")
	if err != nil {
		return d, err
	}
	lastName, err := f.getNullableString("last_name")
	if err != nil {
		return d, err
	}
	preferences, err := f.getNullableString("preferences")
	if err != nil {
		return d, err
	}
	if err := f.rejectUnknown(); err != nil {
		return d, err
	}

	d.UserName = userName.Value
	d.Email = email.Value
	d.Password = password.Value
	d.FirstName = firstName.Value
	d.LastName = lastName.Value
	d.Preferences = preferences.Value
	return d, nil
}

// patchFromStruct reads an UpdateUser request: an optional "id" naming the
// target plus the fields to change.
func patchFromStruct(s *structpb.Struct) (string, models.UserPatch, error) {
	f := newFields(s)
	var p models.UserPatch

	id, err := f.getString("id")
	if err != nil {
		return "", p, err
	}
	if p.UserName, err = f.getString("username"); err != nil {
		return "", p, err
	}
	if p.Email, err = f.getString("email"); err != nil {
		return "", p, err
	}
	if p.Password, err = f.getString("password"); err != nil {
		return "", p, err
	}
	if p.FirstName, err = f.getNullableString("first_name"); err != nil {
		return "", p, err
	}
	if p.LastName, err = f.getNullableString("last_name"); err != nil {
		return "", p, err
	}
	if p.Preferences, err = f.getNullableString("preferences"); err != nil {
		return "", p, err
	}
	if p.IsSuperuser, err = f.getBool("is_superuser"); err != nil {
		return "", p, err
	}
	if p.IsActive, err = f.getBool("is_active"); err != nil {
		return "", p, err
	}
	if p.IsReported, err = f.getBool("is_reported"); err != nil {
		return "", p, err
	}
	if p.IsBlocked, err = f.getBool("is_blocked"); err != nil {
		return "", p, err
	}
	if err := f.rejectUnknown(); err != nil {
		return "", p, err
	}
	return id.Value, p, nil
}
