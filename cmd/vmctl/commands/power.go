package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/errors"
	"codeberg.org/mutker/vmctl/internal/logger"
)

var powerCmd = &cobra.Command{
	Use:   "power <start|stop|shutdown|suspend> <vm>",
	Short: "Change the power state of a virtual machine",
	Long: `Sends a single power command and reports the resulting state. The VM
may be given by ID or by name.`,
	Args: cobra.ExactArgs(2),
	RunE: runPower,
}

func init() {
	rootCmd.AddCommand(powerCmd)
}

func runPower(cmd *cobra.Command, args []string) error {
	errFactory := errors.New()

	action := api.PowerAction(strings.ToLower(args[0]))
	if !action.IsValid() {
		return errFactory.WithMessage(errors.ErrInvalidArgument,
			fmt.Sprintf("unknown action %q: want start, stop, shutdown or suspend", args[0]))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Init(cfg.Debug(), cfg.Verbose())

	gateway, err := api.NewClient(cfg.APIURL, cfg.Username, cfg.Password)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout())
	defer cancel()

	vm, err := resolveVM(ctx, gateway, args[1])
	if err != nil {
		return err
	}

	reported, err := gateway.SetPowerState(ctx, vm.ID, action)
	if err != nil {
		return err
	}

	state := core.TargetState(action)
	if reported != "" {
		state = core.ParsePowerState(reported)
	}
	fmt.Printf("%s: %s\n", vm.Name, state)

	return nil
}

// resolveVM finds a VM by ID or, failing that, by name.
func resolveVM(ctx context.Context, gateway api.Gateway, ref string) (api.VMState, error) {
	vms, err := gateway.ListVMs(ctx)
	if err != nil {
		return api.VMState{}, err
	}

	for _, vm := range vms {
		if vm.ID == ref {
			return vm, nil
		}
	}
	for _, vm := range vms {
		if strings.EqualFold(vm.Name, ref) {
			return vm, nil
		}
	}

	return api.VMState{}, errors.New().WithMessage(errors.ErrResourceNotFound,
		fmt.Sprintf("no VM matching %q", ref))
}
