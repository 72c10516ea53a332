package fleet

import (
	"fmt"

	"github.com/felixgeelhaar/covera/adapter/cli"
	applicationDomain "github.com/felixgeelhaar/covera/internal/applications/domain"
	"github.com/felixgeelhaar/covera/internal/provisioning/domain"
	"github.com/felixgeelhaar/covera/internal/shared/infrastructure/security"
	"github.com/spf13/cobra"
)

var (
	registerFile     string
	registerContract string
	registerCustomer string
)

var vehicleRegisterCmd = &cobra.Command{
	Use:   "register",
	Short: "Register a vehicle on a contract",
	Long: `Register a vehicle from a JSON document using the same shape as an
application vehicle:

  {"vin": "VF1AG000000000001", "brand": "Renault", "model": "Clio", "year": 2020,
   "registrationNumber": "AB-123-CD", "contractSubscriptionKm": 12000}

Examples:
  covera fleet vehicle register --file car.json --contract 1b2c... --customer 6f1c...`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Vehicle registration")
		if app == nil {
			return nil
		}

		contract, err := cli.ParseID("contract id", registerContract)
		if err != nil {
			return err
		}
		customer, err := cli.ParseID("customer id", registerCustomer)
		if err != nil {
			return err
		}

		var vehicle applicationDomain.ProposedVehicle
		if err := security.ReadJSONFile(registerFile, &vehicle); err != nil {
			return err
		}

		id, err := app.Provisioning.RegisterVehicle(cmd.Context(), vehicle.VehicleSpec(contract, customer))
		if err != nil {
			return fmt.Errorf("failed to register vehicle: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Registered vehicle: %s\n", id)
		return nil
	},
}

var (
	patchBrand        string
	patchModel        string
	patchRegistration string
	patchKm           int
	patchLicenceDoc   string
	patchCardDoc      string
)

var vehicleUpdateCmd = &cobra.Command{
	Use:   "update [vehicle-id]",
	Short: "Update a vehicle",
	Long: `Update the editable fields of a vehicle. Only the flags given are changed.

Examples:
  covera fleet vehicle update 3d4e... --km 15000
  covera fleet vehicle update 3d4e... --licence-doc vehicle/driver-license/2.pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Vehicle update")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("vehicle id", args[0])
		if err != nil {
			return err
		}

		if err := app.Provisioning.UpdateVehicle(cmd.Context(), id, vehiclePatch(cmd)); err != nil {
			return fmt.Errorf("failed to update vehicle: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Updated vehicle: %s\n", id)
		return nil
	},
}

// vehiclePatch keeps only the flags set on the command line.
func vehiclePatch(cmd *cobra.Command) domain.VehiclePatch {
	var patch domain.VehiclePatch
	flags := cmd.Flags()
	if flags.Changed("brand") {
		patch.Brand = &patchBrand
	}
	if flags.Changed("model") {
		patch.Model = &patchModel
	}
	if flags.Changed("registration") {
		patch.RegistrationNumber = &patchRegistration
	}
	if flags.Changed("km") {
		patch.ContractSubscriptionKm = &patchKm
	}
	if flags.Changed("licence-doc") {
		patch.DriverLicenceDocURL = &patchLicenceDoc
	}
	if flags.Changed("card-doc") {
		patch.VehicleRegistrationCardDocURL = &patchCardDoc
	}
	return patch
}

var vehicleDeleteCmd = &cobra.Command{
	Use:   "delete [vehicle-id]",
	Short: "Delete a vehicle and its assigned devices",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.RequireApp(cmd, "Vehicle deletion")
		if app == nil {
			return nil
		}

		id, err := cli.ParseID("vehicle id", args[0])
		if err != nil {
			return err
		}

		if err := app.Provisioning.DeleteVehicle(cmd.Context(), id); err != nil {
			return fmt.Errorf("failed to delete vehicle: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Deleted vehicle: %s\n", id)
		return nil
	},
}

func init() {
	vehicleRegisterCmd.Flags().StringVarP(&registerFile, "file", "f", "", "path to the vehicle JSON document")
	vehicleRegisterCmd.Flags().StringVar(&registerContract, "contract", "", "contract id")
	vehicleRegisterCmd.Flags().StringVar(&registerCustomer, "customer", "", "customer id")
	_ = vehicleRegisterCmd.MarkFlagRequired("file")
	_ = vehicleRegisterCmd.MarkFlagRequired("contract")
	_ = vehicleRegisterCmd.MarkFlagRequired("customer")

	vehicleUpdateCmd.Flags().StringVar(&patchBrand, "brand", "", "brand")
	vehicleUpdateCmd.Flags().StringVar(&patchModel, "model", "", "model")
	vehicleUpdateCmd.Flags().StringVar(&patchRegistration, "registration", "", "registration number")
	vehicleUpdateCmd.Flags().IntVar(&patchKm, "km", 0, "subscribed yearly kilometers")
	vehicleUpdateCmd.Flags().StringVar(&patchLicenceDoc, "licence-doc", "", "driver licence document key")
	vehicleUpdateCmd.Flags().StringVar(&patchCardDoc, "card-doc", "", "registration card document key")
}
