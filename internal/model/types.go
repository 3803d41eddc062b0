// Package model defines the reservation catalogue: resources, reservables,
// reservable sets and reservations, plus the permissions that guard them.
package model

import "time"

// Resource is something a reservable can provide, such as a projector or
// a seat.
type Resource struct {
	ID   int64  `json:"id" yaml:"-"`
	Slug string `json:"slug" yaml:"slug"`
	Type string `json:"type" yaml:"type"`
	Name string `json:"name" yaml:"name"`
}

// NResources records how many of a resource a reservable has.
type NResources struct {
	Resource string `json:"resource" yaml:"resource"`
	N        int    `json:"n" yaml:"n"`
}

// Reservable is a thing that can be reserved: a room, a machine, a car.
type Reservable struct {
	ID        int64        `json:"id" yaml:"-"`
	Slug      string       `json:"slug" yaml:"slug"`
	Type      string       `json:"type" yaml:"type"`
	Name      string       `json:"name" yaml:"name"`
	Resources []NResources `json:"resources" yaml:"resources,omitempty"`
}

// ReservableSet groups reservables that are browsed together.
type ReservableSet struct {
	ID          int64    `json:"id" yaml:"-"`
	Slug        string   `json:"slug" yaml:"slug"`
	Name        string   `json:"name" yaml:"name"`
	Reservables []string `json:"reservables" yaml:"reservables"`
}

// NRequirement records how many of a resource a reservation needs.
type NRequirement struct {
	Resource string `json:"resource" yaml:"resource"`
	N        int    `json:"n" yaml:"n"`
}

// Reservation books one or more reservables for [Start, End).
type Reservation struct {
	ID           string         `json:"id" yaml:"id,omitempty"`
	Reason       string         `json:"reason" yaml:"reason"`
	Start        time.Time      `json:"start" yaml:"start"`
	End          time.Time      `json:"end" yaml:"end"`
	Owners       []string       `json:"owners" yaml:"owners"`
	Reservables  []string       `json:"reservables" yaml:"reservables"`
	Requirements []NRequirement `json:"requirements" yaml:"requirements,omitempty"`
	CreatedAt    time.Time      `json:"created_at" yaml:"-"`
}

// SortOrder is a named ordering of reservables for the time view.
// Reservables not listed sort after the listed ones, by slug.
type SortOrder struct {
	Name  string   `json:"name" yaml:"name"`
	Order []string `json:"order" yaml:"order"`
}

// UserProfile links a user to the sort order they browse with.
type UserProfile struct {
	User      string `json:"user" yaml:"user"`
	SortOrder string `json:"sort_order" yaml:"sort_order"`
}

// Permission is a per-reservable right held by a user.
type Permission string

const (
	// PermReserve allows creating reservations using the reservable.
	PermReserve Permission = "reserve"

	// PermDoubleReserve allows reservations overlapping existing ones.
	PermDoubleReserve Permission = "double_reserve"

	// PermManage allows changing anyone's reservations on the reservable.
	PermManage Permission = "manage_reservations"
)

// Valid reports whether p is a known permission.
func (p Permission) Valid() bool {
	switch p {
	case PermReserve, PermDoubleReserve, PermManage:
		return true
	}
	return false
}

// Grant gives User a Permission on the reservable with slug Reservable.
type Grant struct {
	User       string     `json:"user" yaml:"user"`
	Reservable string     `json:"reservable" yaml:"reservable"`
	Permission Permission `json:"permission" yaml:"permission"`
}
