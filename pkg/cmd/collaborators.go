package cmd

import (
	"github.com/pipewise/pipewise/pkg/collab"
	"github.com/pipewise/pipewise/pkg/persistence"
	"github.com/pipewise/pipewise/pkg/protocol"
)

// NewCollaborators wires the live collaborator set: record mutations go to
// the store, stage moves re-enter the executor, and the side-channel
// collaborators (tasks, notes, notifications) run in-memory until external
// systems are attached.
func NewCollaborators(persist persistence.Persistence, stages protocol.StageMover) protocol.Collaborators {
	mem := collab.NewMemory()

	return protocol.Collaborators{
		Records:     collab.NewStoreMutator(persist.RecordRepository()),
		Stages:      stages,
		Tasks:       mem,
		Activities:  mem,
		Notes:       mem,
		Notifier:    mem,
		Cadences:    mem,
		Enrollments: mem,
	}
}
