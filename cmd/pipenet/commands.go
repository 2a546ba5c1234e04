package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pipenet/pkg/auth"
	"github.com/dd0wney/cluso-pipenet/pkg/tools"
)

// needsDataset marks commands that load the dataset before running.
const needsDataset = "needs-dataset"

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "pipenet",
		Short:         "Query a pipe-network dataset",
		Long:          "pipenet loads a pipe-network dataset (file, s3:// or postgres://) and runs the read-only query tools against it.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setup(); err != nil {
				return err
			}
			if mode, ok := cmd.Annotations[needsDataset]; ok {
				return a.open(cmd.Context(), mode == "optional")
			}
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file")
	pf.StringVar(&a.envFile, "env-file", ".env", "optional .env file")
	pf.StringVarP(&a.location, "dataset", "d", "", "dataset location (overrides PIPENET_DATASET)")
	pf.BoolVar(&a.compact, "compact", false, "print JSON on one line")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newToolsCmd(a),
		newCallCmd(a),
		newSimpleToolCmd(a, "shapes", "Counts by shape kind and the values in use", tools.ToolListAvailableShapes),
		newSimpleToolCmd(a, "stats", "Dataset-wide statistics", tools.ToolGetStatistics),
		newSimpleToolCmd(a, "types", "Shape kinds and the fields they carry", tools.ToolGetShapeTypeInfo),
		newFilterCmd(a, "count", "Count objects matching the filters", tools.ToolCountObjects, false),
		newFilterCmd(a, "find", "List objects matching the filters", tools.ToolFindObjects, true),
		newLocationsCmd(a),
		newGroupCmd(a),
		newSprinklersCmd(a),
		newConnectionsCmd(a),
		newTokenCmd(a),
	)
	return root
}

func withDataset(cmd *cobra.Command, mode string) *cobra.Command {
	if cmd.Annotations == nil {
		cmd.Annotations = map[string]string{}
	}
	cmd.Annotations[needsDataset] = mode
	return cmd
}

func addPaging(cmd *cobra.Command) {
	cmd.Flags().Int("limit", 0, "maximum objects to return (server default when unset)")
	cmd.Flags().Int("offset", 0, "number of matches to skip")
}

// collect copies the flags the user actually set into tool arguments.
// Unset flags are left out so the tool applies its own defaults.
func collect(cmd *cobra.Command, args map[string]any, names map[string]string) error {
	for flag, param := range names {
		f := cmd.Flags().Lookup(flag)
		if f == nil || !f.Changed {
			continue
		}
		switch f.Value.Type() {
		case "int", "int64":
			n, err := strconv.ParseInt(f.Value.String(), 10, 64)
			if err != nil {
				return fmt.Errorf("--%s: %w", flag, err)
			}
			args[param] = n
		case "float64":
			v, err := strconv.ParseFloat(f.Value.String(), 64)
			if err != nil {
				return fmt.Errorf("--%s: %w", flag, err)
			}
			args[param] = v
		default:
			args[param] = f.Value.String()
		}
	}
	return nil
}

var pagingFlags = map[string]string{"limit": "limit", "offset": "offset"}

func newToolsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the available tools and their parameters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defs := a.dispatcher.Registry().Definitions()
			return a.printJSON(cmd.OutOrStdout(), map[string]any{"tools": defs, "count": len(defs)})
		},
	}
	return withDataset(cmd, "optional")
}

func newCallCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [json-args]",
		Short: "Call a tool by name with a JSON object of arguments",
		Example: `  pipenet call find_objects '{"shape_name": "Tee", "limit": 5}'
  pipenet call get_statistics`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := json.RawMessage("{}")
			if len(args) == 2 {
				raw = json.RawMessage(args[1])
				if !json.Valid(raw) {
					return fmt.Errorf("arguments are not valid JSON: %s", args[1])
				}
			}
			return a.report(cmd.OutOrStdout(), a.dispatcher.Call(cmd.Context(), args[0], raw))
		},
	}
	return withDataset(cmd, "required")
}

func newSimpleToolCmd(a *app, use, short, tool string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.call(cmd.Context(), cmd.OutOrStdout(), tool, nil)
		},
	}
	mode := "required"
	if tool == tools.ToolGetShapeTypeInfo {
		mode = "optional"
	}
	return withDataset(cmd, mode)
}

func newFilterCmd(a *app, use, short, tool string, paged bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("shape", "", "shape kind: Line, Tee, Elbow or Sprinkler")
	cmd.Flags().Int64("pipe", 0, "pipe group id")
	cmd.Flags().Float64("dn", 0, "nominal diameter")
	cmd.Flags().String("type", "", "sprinkler subtype: end or center")
	names := map[string]string{"shape": "shape_name", "pipe": "pipe_id", "dn": "DN", "type": "sprinkler_type"}
	if paged {
		addPaging(cmd)
		for k, v := range pagingFlags {
			names[k] = v
		}
	}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		args := map[string]any{}
		if err := collect(cmd, args, names); err != nil {
			return err
		}
		return a.call(cmd.Context(), cmd.OutOrStdout(), tool, args)
	}
	return withDataset(cmd, "required")
}

func newLocationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locations",
		Short: "List full records with vertices and connectors",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().String("shape", "", "shape kind")
	cmd.Flags().Int64("pipe", 0, "pipe group id")
	addPaging(cmd)
	names := map[string]string{"shape": "shape_name", "pipe": "pipe_id", "limit": "limit", "offset": "offset"}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		args := map[string]any{}
		if err := collect(cmd, args, names); err != nil {
			return err
		}
		return a.call(cmd.Context(), cmd.OutOrStdout(), tools.ToolGetObjectLocations, args)
	}
	return withDataset(cmd, "required")
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", what, s)
	}
	return id, nil
}

func newGroupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group <pipe-id>",
		Short: "Summarize one pipe group",
		Args:  cobra.ExactArgs(1),
	}
	addPaging(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0], "pipe id")
		if err != nil {
			return err
		}
		params := map[string]any{"pipe_id": id}
		if err := collect(cmd, params, pagingFlags); err != nil {
			return err
		}
		return a.call(cmd.Context(), cmd.OutOrStdout(), tools.ToolAnalyzePipeGroup, params)
	}
	return withDataset(cmd, "required")
}

func newSprinklersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sprinklers",
		Short: "Sprinkler breakdown and arm statistics",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().Int64("pipe", 0, "pipe group id")
	cmd.Flags().String("type", "", "sprinkler subtype: end or center")
	addPaging(cmd)
	names := map[string]string{"pipe": "pipe_id", "type": "sprinkler_type", "limit": "limit", "offset": "offset"}
	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		args := map[string]any{}
		if err := collect(cmd, args, names); err != nil {
			return err
		}
		return a.call(cmd.Context(), cmd.OutOrStdout(), tools.ToolAnalyzeSprinklers, args)
	}
	return withDataset(cmd, "required")
}

func newConnectionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connections <object-id>",
		Short: "Resolve an object's connectors into neighbors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "object id")
			if err != nil {
				return err
			}
			return a.call(cmd.Context(), cmd.OutOrStdout(), tools.ToolAnalyzeConnections, map[string]any{"object_id": id})
		},
	}
	return withDataset(cmd, "required")
}

func newTokenCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <subject>",
		Short: "Sign a bearer token with the configured JWT secret",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Auth.JWTSecret == "" {
				return errors.New("no JWT secret: set auth.jwt_secret or PIPENET_JWT_SECRET")
			}
			m, err := auth.NewJWTManager(a.cfg.Auth.JWTSecret, a.cfg.Auth.Issuer, 0)
			if err != nil {
				return err
			}
			token, err := m.GenerateToken(args[0], ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
