package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/floxcristian/nx-starter/internal/analyzer"
	"github.com/floxcristian/nx-starter/internal/config"
	"github.com/floxcristian/nx-starter/internal/logging"
	"github.com/floxcristian/nx-starter/internal/spec"
	"github.com/floxcristian/nx-starter/internal/workspace"
)

// GenerateOptions captures the CLI-level inputs of the generate command.
// Flags override environment configuration; everything else comes from
// GATEWAY_* keys.
type GenerateOptions struct {
	EnvFile   string
	Workspace string
	Output    string
	Verbose   bool
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Analyze the workspace and write the gateway specification",
		Long: "Analyze every exposable service in the workspace and write one Swagger 2.0 " +
			"specification with gateway extensions. Configuration comes from GATEWAY_* and " +
			"*_BACKEND_URL environment variables; an env file can supply them.",
		Example: strings.TrimSpace(`  gateway-spec generate --env-file .env.gateway
  USERS_BACKEND_URL=https://users.internal gateway-spec generate --output gateway/openapi.yaml`),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := resolveGenerateOptions(cmd)
			if err != nil {
				return err
			}
			logging.Init(opts.Verbose)
			return generateRunner(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.String("workspace", "", "Workspace root (overrides GATEWAY_WORKSPACE_ROOT)")
	flags.String("output", "", "Output file path (overrides GATEWAY_OUTPUT_PATH)")

	return cmd
}

func resolveGenerateOptions(cmd *cobra.Command) (*GenerateOptions, error) {
	var opts GenerateOptions

	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return nil, err
	}
	opts.EnvFile = strings.TrimSpace(envFile)

	opts.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, opts *GenerateOptions) error {
	if flags.Changed("workspace") {
		value, err := flags.GetString("workspace")
		if err != nil {
			return err
		}
		opts.Workspace = strings.TrimSpace(value)
	}
	if flags.Changed("output") {
		value, err := flags.GetString("output")
		if err != nil {
			return err
		}
		opts.Output = strings.TrimSpace(value)
	}
	return nil
}

// runGenerate executes the full pipeline: discovery, per-service analysis,
// assembly, version conversion, platform enhancement, write. Conversion
// warnings are printed after generation completes.
func runGenerate(ctx context.Context, opts *GenerateOptions) error {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil {
			return &spec.GenError{Code: spec.ConfigError, Key: opts.EnvFile,
				Message: fmt.Sprintf("config: load env file %s: %v", opts.EnvFile, err), Cause: err}
		}
	} else {
		// A local .env is optional.
		_ = godotenv.Load()
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.Workspace != "" {
		cfg.WorkspaceRoot = opts.Workspace
	}
	if opts.Output != "" {
		cfg.OutputPath = opts.Output
	}

	backends, err := config.LoadEnviron()
	if err != nil {
		return err
	}

	graph, err := workspace.LoadGraph(ctx, cfg.WorkspaceRoot, cfg.GraphCommand, cfg.GraphTimeout)
	if err != nil {
		return err
	}
	services, err := workspace.Discover(graph, backends)
	if err != nil {
		return err
	}
	logging.Info("discovered %d exposable service(s)", len(services))

	specs := analyzer.AnalyzeAll(cfg.WorkspaceRoot, services, cfg.Version)
	if len(specs) == 0 {
		return &spec.GenError{Code: spec.AnalysisError,
			Message: "generate: no service could be analyzed, nothing to write"}
	}

	doc := spec.Assemble(specs, spec.Info{
		Title:       cfg.Title,
		Description: cfg.Description,
		Version:     cfg.Version,
	})

	v2doc, warnings, err := spec.ConvertToV2(doc)
	if err != nil {
		return err
	}

	routes := make([]spec.BackendRoute, 0, len(specs))
	for _, s := range specs {
		routes = append(routes, spec.BackendRoute{Service: s.Name, Prefix: s.Prefix, URL: s.Backend})
	}
	enhanced := spec.Enhance(v2doc, routes, spec.Platform{
		Title:     cfg.Title,
		Version:   cfg.Version,
		Protocol:  cfg.Protocol,
		RateLimit: cfg.RateLimit,
	})

	if err := spec.Write(enhanced, cfg.OutputPath); err != nil {
		return err
	}
	logging.Info("wrote %s (%d services, %d paths, %d definitions)",
		cfg.OutputPath, len(specs), len(enhanced.Paths), len(enhanced.Definitions))

	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	return nil
}
