package model

import "time"

type UserID string // opaque record identity, assigned by the store

type Address struct {
	Street  string `json:"street,omitempty" bson:"street,omitempty"`
	City    string `json:"city,omitempty" bson:"city,omitempty"`
	State   string `json:"state,omitempty" bson:"state,omitempty"`
	Country string `json:"country,omitempty" bson:"country,omitempty"`
}

type CreateUserParams struct {
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Mobile    string  `json:"mobile"`
	Email     string  `json:"email"`
	Address   Address `json:"address"`
	LoginID   string  `json:"loginId"`
	Password  string  `json:"password"`
}

type LoginParams struct {
	LoginID  string `json:"loginId"`
	Password string `json:"password"`
}

type LogoutParams struct {
	UserID UserID `json:"userId"`
}

// User is a persisted user record. Password holds the encoded bcrypt hash and
// is never serialised to clients.
type User struct {
	ID        UserID    `db:"ID" json:"_id" bson:"_id"`
	FirstName string    `db:"FirstName" json:"firstName" bson:"firstName"`
	LastName  string    `db:"LastName" json:"lastName" bson:"lastName"`
	Mobile    string    `db:"Mobile" json:"mobile" bson:"mobile"`
	Email     string    `db:"Email" json:"email" bson:"email"`
	Street    string    `db:"Street" json:"-" bson:"-"`
	City      string    `db:"City" json:"-" bson:"-"`
	State     string    `db:"State" json:"-" bson:"-"`
	Country   string    `db:"Country" json:"-" bson:"-"`
	Address   Address   `db:"-" json:"address" bson:"address"`
	LoginID   string    `db:"LoginID" json:"loginId" bson:"loginId"`
	Password  string    `db:"Password" json:"-" bson:"password"`
	CreatedAt time.Time `db:"CreatedAt" json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `db:"UpdatedAt" json:"updatedAt" bson:"updatedAt"`
}

// DisplayName is the first and last name joined by a space.
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// FlattenAddress copies Address into the flat columns used by row stores.
func (u *User) FlattenAddress() {
	u.Street = u.Address.Street
	u.City = u.Address.City
	u.State = u.Address.State
	u.Country = u.Address.Country
}

// ExpandAddress is the inverse of FlattenAddress.
func (u *User) ExpandAddress() {
	u.Address = Address{
		Street:  u.Street,
		City:    u.City,
		State:   u.State,
		Country: u.Country,
	}
}

func NewUserFromParams(params *CreateUserParams) *User {
	return &User{
		FirstName: params.FirstName,
		LastName:  params.LastName,
		Mobile:    params.Mobile,
		Email:     params.Email,
		Address:   params.Address,
		LoginID:   params.LoginID,
	}
}
