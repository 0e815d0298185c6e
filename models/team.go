package models

import "github.com/uptrace/bun"

// TeamKind distinguishes human-owned clubs from the shared AI pool.
type TeamKind string

const (
	TeamKindUser    TeamKind = "user"
	TeamKindMachine TeamKind = "machine"
)

// Team is a club competing in one tier. Machine teams are shared by every
// user playing that tier; user teams belong to exactly one account.
type Team struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	TeamID  int      `bun:"team_id,pk,autoincrement" json:"teamID"`
	Name    string   `bun:"name,notnull,unique" json:"name"`
	Kind    TeamKind `bun:"kind,notnull" json:"kind"`
	Tier    int      `bun:"tier,notnull" json:"tier"`
	OwnerID *int     `bun:"owner_id" json:"ownerID,omitempty"`
}

// IsMachine reports whether the team belongs to the shared AI pool.
func (t *Team) IsMachine() bool {
	return t.Kind == TeamKindMachine
}
