package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/kardianos/service"
	"github.com/spf13/cobra"

	"github.com/muurk/autoconnect/internal/daemon"
	"github.com/muurk/autoconnect/internal/logging"
	"github.com/muurk/autoconnect/internal/ui"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Manage the " + daemon.Platform() + " service",
}

func init() {
	for _, action := range []struct {
		name, short string
		fn          func(service.Service) error
	}{
		{"install", "Install autoconnectd as a service", service.Service.Install},
		{"uninstall", "Remove the installed service", service.Service.Uninstall},
		{"start", "Start the installed service", service.Service.Start},
		{"stop", "Stop the running service", service.Service.Stop},
		{"restart", "Restart the running service", service.Service.Restart},
	} {
		serviceCmd.AddCommand(&cobra.Command{
			Use:   action.name,
			Short: action.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return controlService(cmd, action.name, action.fn)
			},
		})
	}
	rootCmd.AddCommand(serviceCmd)
}

// serviceArgs are the arguments the service manager starts us with.
func serviceArgs() ([]string, error) {
	args := []string{"run"}
	if settingsPath != "" {
		abs, err := filepath.Abs(settingsPath)
		if err != nil {
			return nil, err
		}
		args = append(args, "--settings", abs)
	}
	return args, nil
}

func controlService(cmd *cobra.Command, name string, fn func(service.Service) error) error {
	args, err := serviceArgs()
	if err != nil {
		return err
	}
	// The run function is never invoked while controlling the service.
	svc, err := daemon.NewService(func(context.Context) error { return nil }, args, logging.GetLogger())
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}

	p := ui.NewPrinter(cmd.OutOrStdout())
	if err := fn(svc); err != nil {
		p.Failure("Service "+name+" failed", err, []string{
			"service management usually requires root",
			"check 'autoconnectd service' for the detected platform",
		})
		return err
	}
	p.Success("Service "+name+" complete", []ui.Field{
		{Key: "Service", Value: daemon.ServiceName},
		{Key: "Platform", Value: daemon.Platform()},
	})
	return nil
}
