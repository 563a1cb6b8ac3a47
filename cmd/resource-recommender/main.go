package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"k8s.io/client-go/kubernetes"
	metricsclient "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/kubewise/k8s-resource-recommender/pkg/config"
	"github.com/kubewise/k8s-resource-recommender/pkg/datasource"
	"github.com/kubewise/k8s-resource-recommender/pkg/delivery"
	"github.com/kubewise/k8s-resource-recommender/pkg/engine"
	"github.com/kubewise/k8s-resource-recommender/pkg/models"
	"github.com/kubewise/k8s-resource-recommender/pkg/patch"
	"github.com/kubewise/k8s-resource-recommender/pkg/reporter"
	"github.com/kubewise/k8s-resource-recommender/pkg/retry"
	"github.com/kubewise/k8s-resource-recommender/pkg/scanner"
	"github.com/kubewise/k8s-resource-recommender/pkg/storage"
)

var (
	flagNamespaces    []string
	flagHours         int
	flagBufferPercent int
	flagOutputFormat  string
	flagOutputDir     string
	flagInCluster     bool
	flagNoColor       bool
	flagVerbose       bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "resource-recommender",
		Short: "Recommend Kubernetes resource requests and limits from observed usage",
		Long: `Analyzes per-container CPU and memory usage over a trailing window and
produces recommended requests and limits, rendered as a report table and as
strategic-merge patch documents.`,
		SilenceUsage: true,
		RunE:         run,
	}

	rootCmd.Flags().StringSliceVarP(&flagNamespaces, "namespace", "n", nil, "Namespaces to analyze (overrides TARGET_NAMESPACES)")
	rootCmd.Flags().IntVar(&flagHours, "hours", 0, "Analysis window in hours (overrides HOURS)")
	rootCmd.Flags().IntVar(&flagBufferPercent, "buffer", -1, "Headroom percentage (overrides BUFFER_PERCENT)")
	rootCmd.Flags().StringVarP(&flagOutputFormat, "output", "o", "", "Output format: table, yaml, or both")
	rootCmd.Flags().StringVar(&flagOutputDir, "output-dir", "", "Directory for generated files")
	rootCmd.Flags().BoolVar(&flagInCluster, "in-cluster", false, "Use in-cluster Kubernetes config")
	rootCmd.Flags().BoolVar(&flagNoColor, "no-color", false, "Disable colored table output")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Optional .env, matching the original deployment layout.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.Verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}

	restCfg, err := scanner.RestConfig(cfg.UseInClusterConfig)
	if err != nil {
		return fmt.Errorf("building kubernetes config: %w", err)
	}
	clientset, err := kubernetes.NewForConfig(restCfg)
	if err != nil {
		return fmt.Errorf("creating kubernetes client: %w", err)
	}

	retryPolicy := retry.Default(cfg.RetryMaxAttempts, cfg.RetryInitialBackoff)

	prom, err := datasource.NewPrometheusSource(cfg.PrometheusURL, cfg.SampleStep, retryPolicy)
	if err != nil {
		return fmt.Errorf("creating prometheus client: %w", err)
	}

	// metrics-server is optional. When reachable it supplies instant usage
	// for containers Prometheus has no history for.
	var fallback datasource.MetricsSource
	if mc, err := metricsclient.NewForConfig(restCfg); err == nil {
		ms := datasource.NewMetricsServerSource(mc)
		if ms.Available(cmd.Context()) == nil {
			fallback = ms
		}
	}

	eng := engine.New(cfg, prom, fallback, scanner.New(clientset, retryPolicy))

	bundle, err := eng.RunCycle(cmd.Context())
	if err != nil {
		return err
	}

	return renderAndDeliver(cmd.Context(), cfg, bundle)
}

// applyFlags lets command-line flags win over environment configuration.
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("namespace") {
		cfg.TargetNamespaces = flagNamespaces
	}
	if cmd.Flags().Changed("hours") {
		cfg.WindowHours = flagHours
	}
	if cmd.Flags().Changed("buffer") {
		cfg.BufferPercent = flagBufferPercent
	}
	if cmd.Flags().Changed("output") {
		cfg.OutputFormat = flagOutputFormat
	}
	if cmd.Flags().Changed("output-dir") {
		cfg.OutputDir = flagOutputDir
	}
	if cmd.Flags().Changed("in-cluster") {
		cfg.UseInClusterConfig = flagInCluster
	}
	if flagNoColor {
		cfg.NoColor = true
	}
	if flagVerbose {
		cfg.Verbose = true
	}
}

func renderAndDeliver(ctx context.Context, cfg *config.Config, bundle *models.ReportBundle) error {
	rep := reporter.New(!cfg.NoColor)

	if cfg.OutputFormat == config.FormatTable || cfg.OutputFormat == config.FormatBoth {
		fmt.Print(rep.Table(bundle))
	}

	patches := patch.Generate(bundle.Recommendations)
	patchYAML, err := patch.RenderYAML(patches)
	if err != nil {
		return fmt.Errorf("rendering patches: %w", err)
	}

	html, err := rep.HTML(bundle)
	if err != nil {
		return fmt.Errorf("rendering html report: %w", err)
	}

	artifacts := delivery.Artifacts{
		Bundle:    bundle,
		Table:     reporter.New(false).Table(bundle),
		HTML:      html,
		PatchYAML: patchYAML,
	}

	var sinks []delivery.Sink
	if cfg.OutputFormat == config.FormatYAML || cfg.OutputFormat == config.FormatBoth {
		sinks = append(sinks, delivery.NewFileSink(cfg.OutputDir))
	}
	if cfg.SlackWebhookURL != "" {
		sinks = append(sinks, delivery.NewSlackSink(cfg.SlackWebhookURL))
	}
	if cfg.ArchiveEnabled {
		archive, err := storage.NewPostgresArchive(cfg.DatabaseURL)
		if err != nil {
			logrus.WithError(err).Error("archive unavailable, skipping")
		} else {
			defer archive.Close()
			sinks = append(sinks, archive)
		}
	}

	// Delivery failures are logged by Fanout and never fail the run.
	delivery.Fanout(ctx, sinks, artifacts)
	return nil
}
