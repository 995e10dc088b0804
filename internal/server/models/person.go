package models

import "time"

type Person struct {
	ID       string    `json:"id"`
	FullName string    `json:"full_name"`
	DOB      time.Time `json:"dob"`
	Phone    string    `json:"phone"`
	Photo    string    `json:"photo"`
}
