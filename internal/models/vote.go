package models

import "fmt"

// VoteKind represents kind of vote.
type VoteKind int

const (
	// NoVote means that assignment has no vote yet.
	NoVote VoteKind = 0
	// CorrectVoteKind means that solution is believed to be correct.
	CorrectVoteKind VoteKind = 1
	// IncorrectVoteKind means that solution is believed to be incorrect.
	IncorrectVoteKind VoteKind = 2
	// SkipVoteKind means that reviewer abstains.
	SkipVoteKind VoteKind = 3
)

// String returns string representation.
func (k VoteKind) String() string {
	switch k {
	case NoVote:
		return "none"
	case CorrectVoteKind:
		return "correct"
	case IncorrectVoteKind:
		return "incorrect"
	case SkipVoteKind:
		return "skip"
	default:
		return fmt.Sprintf("VoteKind(%d)", k)
	}
}

func (k VoteKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *VoteKind) UnmarshalText(data []byte) error {
	switch s := string(data); s {
	case "correct":
		*k = CorrectVoteKind
	case "incorrect":
		*k = IncorrectVoteKind
	case "skip":
		*k = SkipVoteKind
	default:
		return fmt.Errorf("unsupported vote: %q", s)
	}
	return nil
}

// TestCase represents counterexample supplied with incorrect vote.
type TestCase struct {
	Input          string `json:"input"`
	ExpectedOutput string `json:"expected_output"`
}

// Vote represents verdict of reviewer.
//
// Vote is one of CorrectVote, IncorrectVote or SkipVote.
type Vote interface {
	// Kind returns kind of vote.
	Kind() VoteKind
	// VoteNote returns optional free-text comment.
	VoteNote() string
	vote()
}

// CorrectVote represents vote for correct solution.
type CorrectVote struct {
	Note string
}

func (CorrectVote) Kind() VoteKind {
	return CorrectVoteKind
}

func (v CorrectVote) VoteNote() string {
	return v.Note
}

func (CorrectVote) vote() {}

// IncorrectVote represents vote for incorrect solution.
type IncorrectVote struct {
	// TestCase contains counterexample that should be confirmed
	// by reference solution.
	TestCase TestCase
	Note     string
}

func (IncorrectVote) Kind() VoteKind {
	return IncorrectVoteKind
}

func (v IncorrectVote) VoteNote() string {
	return v.Note
}

func (IncorrectVote) vote() {}

// SkipVote represents abstention.
type SkipVote struct {
	Note string
}

func (SkipVote) Kind() VoteKind {
	return SkipVoteKind
}

func (v SkipVote) VoteNote() string {
	return v.Note
}

func (SkipVote) vote() {}
