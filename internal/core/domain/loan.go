package domain

import "time"

// LoanIdentity holds the attributes the relevance filter matches inbound mail
// against. Empty fields are skipped as signals, never matched.
type LoanIdentity struct {
	PropertyAddress string   `json:"property_address"`
	LoanNumber      string   `json:"loan_number,omitempty"`
	BorrowerName    string   `json:"borrower_name"`
	ContactEmails   []string `json:"contact_emails"`
}

// Assignments maps a requirement name to the ids of the documents satisfying
// it. Many-to-many: one document may satisfy a requirement alongside others.
type Assignments map[string][]string

func (a Assignments) Assign(requirement, documentID string) {
	for _, id := range a[requirement] {
		if id == documentID {
			return
		}
	}
	a[requirement] = append(a[requirement], documentID)
}

func (a Assignments) Unassign(requirement, documentID string) {
	ids := a[requirement]
	for i, id := range ids {
		if id == documentID {
			a[requirement] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(a[requirement]) == 0 {
		delete(a, requirement)
	}
}

// CompletionSet records requirements a human explicitly marked done. It is
// deliberately independent of Assignments: completion sometimes happens
// outside the document trail.
type CompletionSet map[string]bool

func (c CompletionSet) Mark(requirement string)      { c[requirement] = true }
func (c CompletionSet) Unmark(requirement string)    { delete(c, requirement) }
func (c CompletionSet) Done(requirement string) bool { return c[requirement] }

// Loan is the aggregate the checklist lives on. Assignments, completion state
// and custom requirements are persisted as part of the loan record.
type Loan struct {
	ID                 string        `json:"id"`
	Funder             string        `json:"funder"`
	DriveFolderID      string        `json:"drive_folder_id,omitempty"`
	Identity           LoanIdentity  `json:"identity"`
	Assignments        Assignments   `json:"assignments"`
	Completed          CompletionSet `json:"completed"`
	CustomRequirements []Requirement `json:"custom_requirements"`
	LastMailboxSyncAt  *time.Time    `json:"last_mailbox_sync_at,omitempty"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// Checklist resolves the loan's effective requirement list: the funder
// catalog entries followed by the loan's custom additions.
func (l *Loan) Checklist(catalog []Requirement) []Requirement {
	out := make([]Requirement, 0, len(catalog)+len(l.CustomRequirements))
	out = append(out, catalog...)
	out = append(out, l.CustomRequirements...)
	return out
}

// HasRequirement reports whether name exists in the resolved checklist.
func (l *Loan) HasRequirement(catalog []Requirement, name string) bool {
	for _, req := range l.Checklist(catalog) {
		if req.Name == name {
			return true
		}
	}
	return false
}
