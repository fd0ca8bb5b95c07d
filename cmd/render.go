package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/shelter-mirror/internal/render"
)

func newRenderCmd() *cobra.Command {
	var spec render.Spec
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print mirrored records as an HTML fragment",
		Long: fmt.Sprintf(`Selects records by species and status and formats each one with the
requested steps, in order. Available steps: %s.
Without --steps every record uses the %q formatter.`,
			strings.Join(render.Names(), ", "), render.DefaultFormatter),
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			out, err := a.Render.Render(cmd.Context(), spec)
			if err != nil {
				return fmt.Errorf("render: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), out)
			return err
		},
	}
	cmd.Flags().StringVar(&spec.Species, "species", render.DefaultSpecies, "species to show")
	cmd.Flags().StringVar(&spec.Status, "status", "", "status to show (default adoptable)")
	cmd.Flags().IntVar(&spec.Count, "count", render.DefaultRenderCount, "maximum records")
	cmd.Flags().StringSliceVar(&spec.Steps, "steps", nil, "formatters to apply to each record")
	cmd.Flags().StringVar(&spec.ImageSize, "image-size", "", "css size class for images")
	return cmd
}
