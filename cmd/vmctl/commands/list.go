package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"codeberg.org/mutker/vmctl/internal/api"
	"codeberg.org/mutker/vmctl/internal/core"
	"codeberg.org/mutker/vmctl/internal/logger"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List virtual machines and their power states",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
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

	vms, err := gateway.ListVMs(ctx)
	if err != nil {
		return err
	}

	if len(vms) == 0 {
		fmt.Println("No virtual machines found")
		return nil
	}

	fmt.Printf("%-24s %-14s %s\n", "NAME", "STATE", "ID")
	for _, vm := range vms {
		fmt.Printf("%-24s %-14s %s\n", vm.Name, core.ParsePowerState(vm.State), vm.ID)
	}

	return nil
}
