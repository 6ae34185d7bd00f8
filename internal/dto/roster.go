package dto

// CreateStudentRequest registers one roster entry.
type CreateStudentRequest struct {
	RegNo    string `json:"regNo" validate:"required"`
	FullName string `json:"fullName" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
}

// UpdateStudentRequest amends a roster entry. The registration number is
// immutable; it comes from the path.
type UpdateStudentRequest struct {
	FullName string `json:"fullName" validate:"required"`
	Subject  string `json:"subject" validate:"required"`
}

// BulkCreateStudentsRequest loads a pre-parsed roster in one call.
type BulkCreateStudentsRequest struct {
	Students []CreateStudentRequest `json:"students" validate:"required,min=1,dive"`
}
