package models

// Member is the authenticated identity placing a booking
type Member struct {
	ID    string
	Phone string
}
