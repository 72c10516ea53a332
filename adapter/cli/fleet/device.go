package fleet

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	provisioningApp "github.com/felixgeelhaar/covera/internal/provisioning/application"
	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var createSerial string

var deviceCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register a telematics device",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Device creation")
		if app == nil {
			return nil
		}

		id, err := app.Provisioning.CreateDevice(cmd.Context(), domain.DeviceSpec{SerialNumber: createSerial})
		if err != nil {
			return fmt.Errorf("failed to create device: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created device: %s\n", id)
		return nil
	},
}

var (
	assignCustomer string
	assignVehicle  string
	assignContract string
)

var deviceAssignCmd = &cobra.Command{
	Use:   "assign [device-id]",
	Short: "Link a device to a customer, vehicle and contract",
	Long: `Link a device. Omitted links are kept; "none" clears a link.
A device linked to all three is paired and gets a machine credential.

Examples:
  covera fleet device assign 9a8b... --customer 6f1c... --vehicle 3d4e... --contract 1b2c...
  covera fleet device assign 9a8b... --vehicle none`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Device assignment")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("device id", args[0])
		if err != nil {
			return err
		}
		command, err := assignCommand(id)
		if err != nil {
			return err
		}

		device, err := app.Provisioning.AssignDevice(cmd.Context(), command)
		if err != nil {
			return fmt.Errorf("failed to assign device: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Device %s is %s\n", id, device.Status())
		if device.ClientID() != "" {
			fmt.Fprintf(out, "  Client: %s\n", device.ClientID())
		}
		return nil
	},
}

func assignCommand(id uuid.UUID) (provisioningApp.AssignDeviceCommand, error) {
	command := provisioningApp.AssignDeviceCommand{DeviceID: id}
	var err error
	if command.Customer, err = parseLink("customer id", assignCustomer); err != nil {
		return command, err
	}
	if command.Vehicle, err = parseLink("vehicle id", assignVehicle); err != nil {
		return command, err
	}
	if command.Contract, err = parseLink("contract id", assignContract); err != nil {
		return command, err
	}
	return command, nil
}

var deviceDisableCmd = &cobra.Command{
	Use:   "disable [device-id]",
	Short: "Disable a device and revoke its credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleDevice(cmd, args[0], "Device disabling", func(s *provisioningApp.Service) deviceToggle {
			return s.DisableDevice
		})
	},
}

var deviceEnableCmd = &cobra.Command{
	Use:   "enable [device-id]",
	Short: "Re-enable a disabled device",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return toggleDevice(cmd, args[0], "Device enabling", func(s *provisioningApp.Service) deviceToggle {
			return s.EnableDevice
		})
	},
}

type deviceToggle func(ctx context.Context, id uuid.UUID) (*domain.Device, error)

func toggleDevice(cmd *cobra.Command, raw, what string, pick func(*provisioningApp.Service) deviceToggle) error {
	app := cli.RequireApp(cmd, what)
	if app == nil {
		return nil
	}

	id, err := cli.ParseID("device id", raw)
	if err != nil {
		return err
	}

	device, err := pick(app.Provisioning)(cmd.Context(), id)
	if err != nil {
		return fmt.Errorf("failed to update device: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Device %s is %s\n", id, device.Status())
	return nil
}

var deviceDeleteCmd = &cobra.Command{
	Use:   "delete [device-id]",
	Short: "Delete a device and revoke its credential",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Device deletion")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("device id", args[0])
		if err != nil {
			return err
		}

		if err := app.Provisioning.DeleteDevice(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete device: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted device: %s\n", id)
		return nil
	},
}

func init() {
	deviceCreateCmd.Flags().StringVar(&createSerial, "serial", "", "device serial number")
	_ = deviceCreateCmd.MarkFlagRequired("serial")

	deviceAssignCmd.Flags().StringVar(&assignCustomer, "customer", "", "customer id or none")
	deviceAssignCmd.Flags().StringVar(&assignVehicle, "vehicle", "", "vehicle id or none")
	deviceAssignCmd.Flags().StringVar(&assignContract, "contract", "", "contract id or none")
}
