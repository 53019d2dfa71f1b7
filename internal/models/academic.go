package models

import "time"

// AcademicSession is a named school year, e.g. "2024/2025". Exactly one
// session is expected to be current at any time.
type AcademicSession struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Current   bool      `db:"current" json:"current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// AcademicTerm is a named period within a session, e.g. "First Term".
type AcademicTerm struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Current   bool      `db:"current" json:"current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SchoolContext is the resolved current session and term attached to each
// finance/result request.
type SchoolContext struct {
	Session AcademicSession `json:"session"`
	Term    AcademicTerm    `json:"term"`
}

// StudentClass is a named grouping of students, e.g. "Grade 1".
type StudentClass struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Subject is a taught discipline with an independent lifecycle.
type Subject struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
