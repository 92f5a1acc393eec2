package cmd

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/orbitalops/liftoff/pkg/registry"
)

//nolint:gochecknoglobals // Cobra commands are typically global
var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List the registered entities",
	Long:  `Lists every registered entity with its endpoint, key and tables.`,
	RunE:  runEntities,
}

func init() {
	rootCmd.AddCommand(entitiesCmd)
}

func runEntities(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfig(cfgFile)
	if err != nil {
		return err
	}

	reg := registry.New()
	if err := registry.RegisterBuiltin(reg); err != nil {
		return err
	}

	if config.SpecsDir != "" {
		if err := registry.LoadDir(reg, config.SpecsDir); err != nil {
			return err
		}
	}

	names := reg.Names()
	sort.Strings(names)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENDPOINT\tPRIMARY KEY\tWATERMARK\tRAW TABLE\tCURATED TABLE")

	for _, name := range names {
		spec, err := reg.Get(name)
		if err != nil {
			continue
		}

		watermark := spec.WatermarkColumn
		if watermark == "" {
			watermark = "-"
		}

		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			spec.Name, spec.Endpoint, spec.PrimaryKey, watermark, spec.RawTable, spec.CuratedTable)
	}

	return w.Flush()
}
