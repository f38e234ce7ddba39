package models

import "time"

type RatingType string

const (
	RiderToDriver RatingType = "RIDER_TO_DRIVER"
	DriverToRider RatingType = "DRIVER_TO_RIDER"
)

type Rating struct {
	ID        string     `json:"id"`
	RideID    string     `json:"ride"`
	RaterID   string     `json:"rater"`
	RateeID   string     `json:"ratee"`
	Type      RatingType `json:"ratingType"`
	Score     int        `json:"rating"`
	Comment   string     `json:"comment,omitempty"`
	IsActive  bool       `json:"isActive"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
	Distribution  []int   `json:"ratingDistribution"`
}

type PaymentMethodType string

const (
	PaymentCreditCard    PaymentMethodType = "CREDIT_CARD"
	PaymentDebitCard     PaymentMethodType = "DEBIT_CARD"
	PaymentMobileBanking PaymentMethodType = "MOBILE_BANKING"
	PaymentCash          PaymentMethodType = "CASH"
)

func (t PaymentMethodType) Valid() bool {
	switch t {
	case PaymentCreditCard, PaymentDebitCard, PaymentMobileBanking, PaymentCash:
		return true
	}
	return false
}

func (t PaymentMethodType) IsCard() bool { return t == PaymentCreditCard || t == PaymentDebitCard }

type PaymentMethod struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user"`
	Type           PaymentMethodType `json:"type"`
	CardNumber     string            `json:"cardNumber,omitempty"`
	CardHolderName string            `json:"cardHolderName,omitempty"`
	ExpiryMonth    int               `json:"expiryMonth,omitempty"`
	ExpiryYear     int               `json:"expiryYear,omitempty"`
	MobileNumber   string            `json:"mobileNumber,omitempty"`
	BankName       string            `json:"bankName,omitempty"`
	// Card gateway references: the customer the card is attached to and
	// its reusable payment method ID. Empty for cash and mobile banking.
	GatewayCustomerID string    `json:"-"`
	GatewayMethodID   string    `json:"-"`
	IsDefault         bool      `json:"isDefault"`
	IsActive          bool      `json:"isActive"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

type Relationship string

const (
	RelFamily  Relationship = "FAMILY"
	RelFriend  Relationship = "FRIEND"
	RelSpouse  Relationship = "SPOUSE"
	RelParent  Relationship = "PARENT"
	RelSibling Relationship = "SIBLING"
	RelOther   Relationship = "OTHER"
)

func (r Relationship) Valid() bool {
	switch r {
	case RelFamily, RelFriend, RelSpouse, RelParent, RelSibling, RelOther:
		return true
	}
	return false
}

type EmergencyContact struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user"`
	Name         string       `json:"name"`
	Phone        string       `json:"phone"`
	Relationship Relationship `json:"relationship"`
	IsPrimary    bool         `json:"isPrimary"`
	IsActive     bool         `json:"isActive"`
	CreatedAt    time.Time    `json:"createdAt"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

type NotificationSettings struct {
	Email           bool `json:"email"`
	SMS             bool `json:"sms"`
	Push            bool `json:"push"`
	RideUpdates     bool `json:"rideUpdates"`
	Promotions      bool `json:"promotions"`
	EmergencyAlerts bool `json:"emergencyAlerts"`
}

type PrivacySettings struct {
	ShareLocation    bool `json:"shareLocation"`
	SharePhoneNumber bool `json:"sharePhoneNumber"`
	ShareRideHistory bool `json:"shareRideHistory"`
}

type UserSettings struct {
	UserID        string               `json:"user"`
	Notifications NotificationSettings `json:"notifications"`
	Privacy       PrivacySettings      `json:"privacy"`
	Language      string               `json:"language"`
	Currency      string               `json:"currency"`
	Timezone      string               `json:"timezone"`
	CreatedAt     time.Time            `json:"createdAt"`
	UpdatedAt     time.Time            `json:"updatedAt"`
}

func DefaultSettings(userID string) UserSettings {
	return UserSettings{
		UserID: userID,
		Notifications: NotificationSettings{
			Email:           true,
			SMS:             true,
			Push:            true,
			RideUpdates:     true,
			EmergencyAlerts: true,
		},
		Privacy:  PrivacySettings{ShareLocation: true},
		Language: "en",
		Currency: "BDT",
		Timezone: "Asia/Dhaka",
	}
}

// Overview is the admin report over a creation-time window.
type Overview struct {
	Users struct {
		Total           int `json:"total"`
		Riders          int `json:"riders"`
		Drivers         int `json:"drivers"`
		Blocked         int `json:"blocked"`
		ApprovedDrivers int `json:"approvedDrivers"`
		PendingDrivers  int `json:"pendingDrivers"`
	} `json:"users"`
	Rides struct {
		Total     int `json:"total"`
		Completed int `json:"completed"`
		Cancelled int `json:"cancelled"`
		Active    int `json:"active"`
	} `json:"rides"`
	Earnings struct {
		Total float64 `json:"total"`
	} `json:"earnings"`
}

// DailyStats are the live counters projected from ride events.
type DailyStats struct {
	Day      string         `json:"day"`
	ByStatus map[string]int `json:"byStatus"`
	Revenue  float64        `json:"revenue"`
}
