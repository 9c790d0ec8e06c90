package models

// Role is a hidden allegiance assigned once at setup.
type Role string

const (
	RoleTyrant       Role = "Tyrant"
	RoleLoyalist     Role = "Loyalist"
	RoleRebel        Role = "Rebel"
	RoleCollaborator Role = "Collaborator"
)

// Faction identifies the side that wins when a terminal condition fires.
type Faction string

const (
	FactionNone   Faction = ""
	FactionRebels Faction = "Rebels"
	FactionTyrant Faction = "Tyrant and Loyalists"
)
