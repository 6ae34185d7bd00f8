package models

import "time"

// Student is a single exam candidate on the roster. The registration number
// is the identity used everywhere downstream; records are treated as
// immutable once an allocation pass starts.
type Student struct {
	RegNo     string    `db:"reg_no" json:"reg_no"`
	FullName  string    `db:"full_name" json:"full_name"`
	Subject   string    `db:"subject" json:"subject"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search    string
	Subject   string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
