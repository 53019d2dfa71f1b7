package models

import "time"

// Student statuses.
const (
	StudentStatusActive   = "active"
	StudentStatusInactive = "inactive"
)

// Student represents a learner registered in the school.
type Student struct {
	ID                 string     `db:"id" json:"id"`
	RegistrationNumber string     `db:"registration_number" json:"registration_number"`
	Surname            string     `db:"surname" json:"surname"`
	Firstname          string     `db:"firstname" json:"firstname"`
	OtherName          string     `db:"other_name" json:"other_name"`
	Gender             string     `db:"gender" json:"gender"`
	DateOfBirth        *time.Time `db:"date_of_birth" json:"date_of_birth,omitempty"`
	CurrentStatus      string     `db:"current_status" json:"current_status"`
	ParentMobileNumber string     `db:"parent_mobile_number" json:"parent_mobile_number"`
	Address            string     `db:"address" json:"address"`
	CurrentClassID     *string    `db:"current_class_id" json:"current_class_id,omitempty"`
	PassportPath       *string    `db:"passport_path" json:"passport_path,omitempty"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

// FullName renders "Surname Firstname OtherName" the way report cards print it.
func (s Student) FullName() string {
	name := s.Surname + " " + s.Firstname
	if s.OtherName != "" {
		name += " " + s.OtherName
	}
	return name
}

// StudentDetail joins the student with its current class name.
type StudentDetail struct {
	Student
	CurrentClassName *string `db:"current_class_name" json:"current_class_name,omitempty"`
}

// StudentFilter encapsulates search parameters for listing students.
type StudentFilter struct {
	Search    string
	ClassID   string
	Status    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
