// Package migrations contains migrations of review database.
package migrations

import (
	"github.com/udovin/peerreview/internal/db"
	"github.com/udovin/peerreview/internal/db/schema"
)

// Prefix contains prefix of migration table.
const Prefix = "review"

// Schema contains schema migrations in order of application.
var Schema = []db.Migration{
	db.NewSchemaMigration("001_create_review_tables", m001Operations...),
}

var m001Operations = []schema.Operation{
	schema.CreateTable{
		Name: "review_solution",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "problem_id", Type: schema.Int64},
			{Name: "author_id", Type: schema.Int64},
			{Name: "language", Type: schema.String},
			{Name: "content", Type: schema.String},
			{Name: "create_time", Type: schema.Int64},
		},
	},
	schema.CreateIndex{
		Name:    "review_solution_problem_idx",
		Table:   "review_solution",
		Columns: []string{"problem_id"},
	},
	schema.CreateTable{
		Name: "review_reference_solution",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "problem_id", Type: schema.Int64},
			{Name: "language", Type: schema.String},
			{Name: "content", Type: schema.String},
			{Name: "output_rule", Type: schema.String},
		},
	},
	schema.CreateIndex{
		Name:    "review_reference_solution_problem_idx",
		Table:   "review_reference_solution",
		Columns: []string{"problem_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name: "review_assignment",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "reviewer_id", Type: schema.Int64},
			{Name: "solution_id", Type: schema.Int64},
			{Name: "status", Type: schema.Int64},
			{Name: "vote", Type: schema.Int64},
			{Name: "test_input", Type: schema.String},
			{Name: "test_output", Type: schema.String},
			{Name: "note", Type: schema.String},
			{Name: "create_time", Type: schema.Int64},
			{Name: "complete_time", Type: schema.Int64},
		},
	},
	schema.CreateIndex{
		Name:    "review_assignment_reviewer_solution_idx",
		Table:   "review_assignment",
		Columns: []string{"reviewer_id", "solution_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name: "review_handle",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "phase_id", Type: schema.Int64},
			{Name: "reviewer_id", Type: schema.Int64},
			{Name: "author_id", Type: schema.Int64},
			{Name: "handle", Type: schema.String},
		},
	},
	schema.CreateIndex{
		Name:    "review_handle_phase_pair_idx",
		Table:   "review_handle",
		Columns: []string{"phase_id", "reviewer_id", "author_id"},
		Unique:  true,
	},
	schema.CreateTable{
		Name: "review_phase",
		Columns: []schema.Column{
			{Name: "id", Type: schema.Int64, PrimaryKey: true, AutoIncrement: true},
			{Name: "open_time", Type: schema.Int64},
			{Name: "deadline", Type: schema.Int64},
			{Name: "salt", Type: schema.String},
		},
	},
}
