package models

import (
	"regexp"
	"time"
)

var bdMobileRE = regexp.MustCompile(`^\+8801[3-9]\d{8}$`)

// IsBDMobile reports whether s is a Bangladeshi mobile number in +8801XXXXXXXXX form.
func IsBDMobile(s string) bool { return bdMobileRE.MatchString(s) }

type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleRider  Role = "RIDER"
	RoleDriver Role = "DRIVER"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(s); r {
	case RoleAdmin, RoleRider, RoleDriver:
		return r, true
	}
	return "", false
}

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Picture   string    `json:"picture,omitempty"`
	Role      Role      `json:"role"`
	IsBlocked bool      `json:"isBlocked"`
	IsDeleted bool      `json:"isDeleted"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "PENDING"
	ApplicationApproved ApplicationStatus = "APPROVED"
	ApplicationRejected ApplicationStatus = "REJECTED"
)

// DriverProfile is a driver's operational record, distinct from the user.
type DriverProfile struct {
	ID                string            `json:"id"`
	UserID            string            `json:"user"`
	VehicleNumber     string            `json:"vehicleNumber"`
	VehicleModel      string            `json:"vehicleModel"`
	LicenseNumber     string            `json:"licenseNumber"`
	ApplicationStatus ApplicationStatus `json:"applicationStatus"`
	RejectionReason   string            `json:"rejectionReason,omitempty"`
	IsOnline          bool              `json:"isOnline"`
	IsSuspended       bool              `json:"isSuspended"`
	Earnings          float64           `json:"earnings"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}
