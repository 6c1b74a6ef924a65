package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/logger"
)

var infoCmd = &cobra.Command{
	Use:   "info <vm>",
	Short: "Show details for a virtual machine",
	Long: `Fetches hardware details and the current power state for a single VM.
The VM may be given by ID or by name.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
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

	vm, err := resolveVM(ctx, gateway, args[0])
	if err != nil {
		return err
	}

	details, err := gateway.GetVM(ctx, vm.ID)
	if err != nil {
		return err
	}

	fmt.Print(formatVMInfo(vm, details))

	return nil
}

// formatVMInfo renders the detail block for a VM.
func formatVMInfo(vm api.VMState, details api.VMDetails) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%-12s %s\n", "Name:", vm.Name)
	fmt.Fprintf(&b, "%-12s %s\n", "ID:", vm.ID)
	fmt.Fprintf(&b, "%-12s %s\n", "State:", core.ParsePowerState(vm.State))
	if vm.Path != "" {
		fmt.Fprintf(&b, "%-12s %s\n", "Path:", vm.Path)
	}
	if details.Processors > 0 {
		fmt.Fprintf(&b, "%-12s %d\n", "Processors:", details.Processors)
	}
	if details.MemoryMB > 0 {
		fmt.Fprintf(&b, "%-12s %d MB\n", "Memory:", details.MemoryMB)
	}

	return b.String()
}
