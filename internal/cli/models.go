package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/nhype/gigaam-inference/internal/recognize"
)

// ModelsCmd creates the models command.
func ModelsCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the supported recognition models",
		Long: `List the supported recognition models.

The configured model (model.name) is marked with '*'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runModels(env)
		},
	}
}

func runModels(env *Env) error {
	current := recognize.DefaultModel
	if cfg, err := env.ConfigLoader.Load(env.ConfigPath); err == nil {
		if m, err := recognize.ParseModel(cfg.Model.Name); err == nil {
			current = m
		}
	}

	tw := tabwriter.NewWriter(env.Stdout, 0, 0, 2, ' ', 0)
	for _, m := range recognize.Models() {
		mark := " "
		if m == current {
			mark = "*"
		}
		_, _ = fmt.Fprintf(tw, "%s %s\t%s\n", mark, m, m.Description())
	}
	return tw.Flush()
}
