package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/zeusync/docworld/internal/config"
	"github.com/zeusync/docworld/internal/core/document"
	"github.com/zeusync/docworld/internal/injector"
	"github.com/zeusync/docworld/pkg/concurrent"
	"github.com/zeusync/docworld/pkg/sequence"
)

const (
	flagConfig = "config"
	flagDoc    = "doc"
	flagUpdate = "update"
	flagOut    = "out"
)

func NewLoadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Load a document into a world, optionally apply an update, and print the result",
		Example: fmt.Sprintf("%s load --config docworld.yaml --doc doc.json --update next.json --out world.json",
			AppName),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfgPath, _ := cmd.Flags().GetString(flagConfig)
			docPath, _ := cmd.Flags().GetString(flagDoc)
			updatePath, _ := cmd.Flags().GetString(flagUpdate)
			outPath, _ := cmd.Flags().GetString(flagOut)
			return runLoad(cmd.Context(), cmd.OutOrStdout(), cfgPath, docPath, updatePath, outPath)
		},
	}
	cmd.Flags().String(flagConfig, "", "config file (.yaml, .yml or .json)")
	cmd.Flags().String(flagDoc, "", "JSON document to load")
	cmd.Flags().String(flagUpdate, "", "JSON document state to merge in after the load")
	cmd.Flags().String(flagOut, "", "write the serialized world to this file, - for stdout")
	_ = cmd.MarkFlagRequired(flagConfig)
	_ = cmd.MarkFlagRequired(flagDoc)
	return cmd
}

func runLoad(ctx context.Context, out io.Writer, cfgPath, docPath, updatePath, outPath string) error {
	paths := []string{cfgPath, docPath}
	if updatePath != "" {
		paths = append(paths, updatePath)
	}
	inputs, err := concurrent.ParallelMap(ctx, sequence.From(paths), 0, func(_ context.Context, path string) ([]byte, error) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return data, nil
	})
	if err != nil {
		return err
	}

	cfg, err := config.Parse(cfgPath, inputs[0])
	if err != nil {
		return err
	}
	doc, err := document.Unmarshal(inputs[1])
	if err != nil {
		return fmt.Errorf("%s: %w", docPath, err)
	}

	s, err := injector.InitializeSynchronizer(ctx, cfg, document.Ready(doc))
	if err != nil {
		return err
	}
	defer s.Close()

	if updatePath != "" {
		var next map[string]any
		if err := json.Unmarshal(inputs[2], &next); err != nil {
			return fmt.Errorf("%s: %w", updatePath, err)
		}
		if err := doc.Replace(next); err != nil {
			return fmt.Errorf("apply update: %w", err)
		}
	}

	w := s.World()
	stats := s.Stats()
	fmt.Fprintf(out, "entities: %d\n", w.Len())
	fmt.Fprintf(out, "bindings: %d\n", stats.Bindings)
	fmt.Fprintf(out, "pulled: %d skipped: %d\n", stats.Pulls, stats.Skipped)

	if outPath == "" {
		return nil
	}
	data, err := json.MarshalIndent(w.Serialize(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if outPath == "-" {
		_, err = out.Write(data)
		return err
	}
	return os.WriteFile(outPath, data, 0o644)
}
