package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
)

func renderCmd() *cobra.Command {
	var plain bool

	cmd := &cobra.Command{
		Use:   "render <doc.json>",
		Short: "Render a document as markup",
		Long: `Render a document as the wire markup a host would load, ids and markers
included, or as plain HTML with --plain.

Examples:
  vdiff render page.json
  vdiff render --plain page.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readDocument(args[0])
			if err != nil {
				return err
			}
			root := vdom.Align(nil, doc.Root, vdom.NewIDGenerator())

			r := render.NewRenderer(render.RendererConfig{Plain: plain})
			for _, e := range doc.Head {
				if err := r.RenderToWriter(cmd.OutOrStdout(), e.Node); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			if err := r.RenderToWriter(cmd.OutOrStdout(), root); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&plain, "plain", false, "Render plain HTML without ids or markers")

	return cmd
}
