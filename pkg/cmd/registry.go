// Package cmd provides common initialization functions for command-line
// applications.
package cmd

import (
	"log/slog"

	"github.com/pipewise/pipewise/pkg/actions/addnote"
	"github.com/pipewise/pipewise/pkg/actions/assignowner"
	"github.com/pipewise/pipewise/pkg/actions/cadence"
	"github.com/pipewise/pipewise/pkg/actions/createactivity"
	"github.com/pipewise/pipewise/pkg/actions/createtask"
	"github.com/pipewise/pipewise/pkg/actions/enrollmentdraft"
	"github.com/pipewise/pipewise/pkg/actions/movestage"
	"github.com/pipewise/pipewise/pkg/actions/notify"
	"github.com/pipewise/pipewise/pkg/actions/updatefields"
	"github.com/pipewise/pipewise/pkg/registry"
)

func NewRegistry(logger *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(logger)

	registerNativeActions(reg)

	return reg
}

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(updatefields.NewFactory())
	reg.RegisterAction(movestage.NewFactory())
	reg.RegisterAction(createtask.NewFactory())
	reg.RegisterAction(createactivity.NewFactory())
	reg.RegisterAction(addnote.NewFactory())
	reg.RegisterAction(assignowner.NewFactory())
	reg.RegisterAction(notify.NewFactory())
	reg.RegisterAction(cadence.NewStartFactory())
	reg.RegisterAction(cadence.NewStopFactory())
	reg.RegisterAction(enrollmentdraft.NewFactory())
}
