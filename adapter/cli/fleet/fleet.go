// Package fleet holds the vehicle and device commands.
package fleet

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// Cmd is the fleet command group
var Cmd = &cobra.Command{
	Use:   "fleet",
	Short: "Manage insured vehicles and telematics devices",
}

var vehicleCmd = &cobra.Command{
	Use:     "vehicle",
	Aliases: []string{"vehicles"},
	Short:   "Manage insured vehicles",
}

var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"devices"},
	Short:   "Manage telematics devices",
}

// unlink clears a device association when passed as a link value.
const unlink = "none"

// parseLink reads an association flag. An empty value keeps the current
// link and "none" clears it.
func parseLink(name, raw string) (*uuid.UUID, error) {
	switch raw {
	case "":
		return nil, nil
	case unlink:
		id := uuid.Nil
		return &id, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: expected a uuid or %q", name, raw, unlink)
	}
	return &id, nil
}

func init() {
	vehicleCmd.AddCommand(vehicleRegisterCmd)
	vehicleCmd.AddCommand(vehicleUpdateCmd)
	vehicleCmd.AddCommand(vehicleDeleteCmd)

	deviceCmd.AddCommand(deviceCreateCmd)
	deviceCmd.AddCommand(deviceAssignCmd)
	deviceCmd.AddCommand(deviceDisableCmd)
	deviceCmd.AddCommand(deviceEnableCmd)
	deviceCmd.AddCommand(deviceDeleteCmd)

	Cmd.AddCommand(vehicleCmd)
	Cmd.AddCommand(deviceCmd)
}
