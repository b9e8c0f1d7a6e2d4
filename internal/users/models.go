package users

import "time"

type Preference struct {
	ReceiveEmail bool `json:"receiveEmail"`
}

type User struct {
	ID         string      `json:"id"`
	Email      string      `json:"email"`
	FirstName  string      `json:"firstName"`
	LastName   string      `json:"lastName"`
	Address    string      `json:"address"`
	CreatedAt  time.Time   `json:"createdAt"`
	UpdatedAt  time.Time   `json:"updatedAt"`
	Preference *Preference `json:"userPreference,omitempty"`
}
