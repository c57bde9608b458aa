package main

import (
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/vango-dev/vdiff/pkg/protocol"
	"github.com/vango-dev/vdiff/pkg/render"
	"github.com/vango-dev/vdiff/pkg/vdom"
	"github.com/vango-dev/vdiff/pkg/vtest"
)

// readDocument reads a JSON document from path, or stdin for "-".
func readDocument(path string) (*vdom.Document, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	doc, err := vdom.ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// step is one old → new transition with both trees aligned.
type step struct {
	old, next *vdom.Document
	patches   []vdom.Patch
}

// diffFiles loads two documents, gives old fresh ids, aligns new against it
// and diffs both the tree and the head.
func diffFiles(oldPath, newPath string, threshold int) (*step, error) {
	oldDoc, err := readDocument(oldPath)
	if err != nil {
		return nil, err
	}
	newDoc, err := readDocument(newPath)
	if err != nil {
		return nil, err
	}

	gen := vdom.NewIDGenerator()
	differ := vdom.NewDiffer(vdom.NewPool(), vdom.Options{BulkInsertThreshold: threshold})
	oldDoc.Root = differ.Align(nil, oldDoc.Root, gen)
	newDoc.Root = differ.Align(oldDoc.Root, newDoc.Root, gen)

	patches, err := differ.Diff(oldDoc.Root, newDoc.Root)
	if err != nil {
		return nil, err
	}
	head, err := differ.DiffHead(oldDoc.Head, newDoc.Head)
	if err != nil {
		return nil, err
	}
	return &step{old: oldDoc, next: newDoc, patches: append(patches, head...)}, nil
}

func diffCmd() *cobra.Command {
	var (
		threshold int
		stats     bool
	)

	cmd := &cobra.Command{
		Use:   "diff <old.json> <new.json>",
		Short: "Print the patches between two documents",
		Long: `Print the patches that turn the old document into the new one, one per
line, in the order a host applies them.

Examples:
  vdiff diff old.json new.json
  vdiff diff --stats --threshold=16 old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := diffFiles(args[0], args[1], threshold)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range s.patches {
				fmt.Fprintf(out, "%4d %s\n", i, p)
			}
			if stats {
				printStats(out, s.patches)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Bulk insert threshold (0 disables)")
	cmd.Flags().BoolVar(&stats, "stats", false, "Print patch counts by operation")

	return cmd
}

func printStats(w io.Writer, patches []vdom.Patch) {
	counts := vdom.CountOps(patches)
	ops := make([]vdom.PatchOp, 0, len(counts))
	for op := range counts {
		ops = append(ops, op)
	}
	slices.Sort(ops)
	fmt.Fprintf(w, "\n%d patches\n", len(patches))
	for _, op := range ops {
		fmt.Fprintf(w, "  %-22s %d\n", op, counts[op])
	}
}

func encodeCmd() *cobra.Command {
	var (
		threshold int
		output    string
	)

	cmd := &cobra.Command{
		Use:   "encode <old.json> <new.json>",
		Short: "Encode the patches between two documents as a binary batch",
		Long: `Encode the patches that turn the old document into the new one as a
binary batch.

Examples:
  vdiff encode old.json new.json -o batch.bin
  vdiff encode old.json new.json > batch.bin`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := diffFiles(args[0], args[1], threshold)
			if err != nil {
				return err
			}
			buf, err := protocol.EncodeBatch(s.patches)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				_, err := cmd.OutOrStdout().Write(buf)
				return err
			}
			if err := os.WriteFile(output, buf, 0644); err != nil {
				return err
			}
			success(cmd.OutOrStdout(), "Wrote %d patches (%d bytes) to %s", len(s.patches), len(buf), output)
			return nil
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Bulk insert threshold (0 disables)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")

	return cmd
}

func decodeCmd() *cobra.Command {
	var maxStrings int

	cmd := &cobra.Command{
		Use:   "decode <batch.bin>",
		Short: "Print the patches in a binary batch",
		Long: `Decode a binary batch and print its patches as the host sees them.

Examples:
  vdiff decode batch.bin
  vdiff encode old.json new.json | vdiff decode -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				buf []byte
				err error
			)
			if args[0] == "-" {
				buf, err = io.ReadAll(cmd.InOrStdin())
			} else {
				buf, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			limits := protocol.DefaultLimits()
			if maxStrings > 0 {
				limits.MaxAllocation = maxStrings
			}
			patches, err := protocol.DecodeBatchWithLimits(buf, limits)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for i, p := range patches {
				fmt.Fprintf(out, "%4d %s\n", i, p)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&maxStrings, "max-string", 0, "Largest string the decoder accepts, in bytes")

	return cmd
}

func applyCmd() *cobra.Command {
	var threshold int

	cmd := &cobra.Command{
		Use:   "apply <old.json> <new.json>",
		Short: "Check that the diff applies cleanly on the reference host",
		Long: `Diff two documents, apply the patches and their binary batch to the
reference host showing the old document, and compare the result with a fresh
rendering of the new one.

Examples:
  vdiff apply old.json new.json`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := diffFiles(args[0], args[1], threshold)
			if err != nil {
				return err
			}
			if err := vtest.Equivalent(s.old.Root, s.next.Root); err != nil {
				return err
			}

			host := vtest.NewHost()
			if err := host.Apply(headMount(s.old.Head)); err != nil {
				return err
			}
			buf, err := protocol.EncodeBatch(s.patches[len(s.patches)-headPatches(s.patches):])
			if err != nil {
				return err
			}
			if err := host.ApplyBatch(buf); err != nil {
				return fmt.Errorf("head: %w", err)
			}
			if got, want := len(host.Head()), len(s.next.Head); got != want {
				return fmt.Errorf("head: host has %d entries, want %d", got, want)
			}
			for _, e := range s.next.Head {
				if host.Head()[e.Key] != render.Markup(e.Node) {
					return fmt.Errorf("head: entry %q differs", e.Key)
				}
			}

			success(cmd.OutOrStdout(), "%d patches apply cleanly", len(s.patches))
			return nil
		},
	}

	cmd.Flags().IntVarP(&threshold, "threshold", "t", 0, "Bulk insert threshold (0 disables)")

	return cmd
}

func headMount(head []vdom.HeadEntry) []vdom.Patch {
	patches := make([]vdom.Patch, 0, len(head))
	for _, e := range head {
		patches = append(patches, vdom.Patch{Op: vdom.PatchAddHeadElement, Name: e.Key, Node: e.Node})
	}
	return patches
}

// headPatches counts the head patches at the end of patches.
func headPatches(patches []vdom.Patch) int {
	n := 0
	for i := len(patches) - 1; i >= 0; i-- {
		switch patches[i].Op {
		case vdom.PatchAddHeadElement, vdom.PatchRemoveHeadElement, vdom.PatchUpdateHeadElement:
			n++
		default:
			return n
		}
	}
	return n
}
