// Package cli — install.go implements the "rocketgraph-install install"
// command, the primary operation of the tool.
//
// Orchestration steps:
//  1. Collect options (flags, then install.jsonc defaults) and validate
//  2. Preflight the install directory (writability fatal, disk advisory)
//  3. Resolve a working container runtime and compose frontend
//  4. Fetch the deployment files from the download base
//  5. Reconcile the environment template into the local document
//  6. Audit the required ports against the host
//  7. Run the deployment sequence (pull, prepare, start, extract)
//  8. Print the summary (text or JSON)
//
// The port audit runs strictly between reconciliation and the first
// deployment command: a conflict must abort the run before any container
// work has started.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Rocketgraphai/install/internal/compose"
	"github.com/Rocketgraphai/install/internal/defaults"
	"github.com/Rocketgraphai/install/internal/deploy"
	"github.com/Rocketgraphai/install/internal/engine"
	"github.com/Rocketgraphai/install/internal/engineapi"
	"github.com/Rocketgraphai/install/internal/envfile"
	"github.com/Rocketgraphai/install/internal/execx"
	"github.com/Rocketgraphai/install/internal/fetch"
	"github.com/Rocketgraphai/install/internal/model"
	"github.com/Rocketgraphai/install/internal/port"
	"github.com/Rocketgraphai/install/internal/preflight"
)

// fetcher is the slice of the fetch client the installer needs,
// extracted as an interface so tests can serve canned deployment files.
type fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// installDeps bundles the injectable collaborators of the install run.
// Production wiring comes from defaultInstallDeps; tests substitute
// fakes to drive the orchestration without a container runtime or
// network.
type installDeps struct {
	// runner executes every external command.
	runner execx.Runner

	// newFetcher builds the download client for the resolved base URL.
	newFetcher func(baseURL string) fetcher

	// newAPIClient builds the optional engine API fast path. Returning
	// an error is fine; the API is never required.
	newAPIClient func(ctx context.Context) (*engineapi.Client, error)
}

// defaultInstallDeps wires the production collaborators.
func defaultInstallDeps() installDeps {
	return installDeps{
		runner: execx.NewExecutor(),
		newFetcher: func(baseURL string) fetcher {
			return fetch.NewClient(baseURL)
		},
		newAPIClient: func(ctx context.Context) (*engineapi.Client, error) {
			c, err := engineapi.NewClient()
			if err != nil {
				return nil, err
			}
			if err := c.Ping(ctx); err != nil {
				_ = c.Close()
				return nil, err
			}
			return c, nil
		},
	}
}

// NewInstallCommand creates the "install" cobra command.
func NewInstallCommand() *cobra.Command {
	opts := &model.InstallOptions{}

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the Rocketgraph stack into a directory on this host",
		Long: `Install the Rocketgraph stack: detect a container runtime, download the
deployment files, reconcile the environment configuration, verify that
the required ports are free, and start the services.

Port, license, and enterprise overrides apply to fresh installs only.
When the install directory already holds an environment document from a
previous run, that document is authoritative: overrides are ignored and
newly introduced template keys are reported for manual adoption.

Examples:
  rocketgraph-install install
  rocketgraph-install install --dir /opt/rocketgraph --http-port 8080
  rocketgraph-install install --enterprise --license /etc/xgt.lic
  rocketgraph-install install --runtime podman`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := runInstall(cmd.Context(), opts, defaultInstallDeps())
			if err != nil {
				return err
			}
			printInstallResult(report)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Dir, "dir", ".", "Install directory for the deployment files")
	cmd.Flags().StringVar(&opts.BaseURL, "base-url", "", "Download base URL (default: "+model.DefaultBaseURL+")")
	cmd.Flags().IntVar(&opts.HTTPPort, "http-port", 0, "Console HTTP port (fresh install only; default from template)")
	cmd.Flags().IntVar(&opts.HTTPSPort, "https-port", 0, "Console HTTPS port (fresh install only; default from template)")
	cmd.Flags().BoolVar(&opts.Enterprise, "enterprise", false, "Enable multi-user (enterprise) mode on fresh install")
	cmd.Flags().StringVar(&opts.License, "license", "", "Path to the xGT license file")
	cmd.Flags().StringVar(&opts.Runtime, "runtime", "", "Restrict runtime detection: docker or podman")

	return cmd
}

// installReport aggregates everything the summary needs.
type installReport struct {
	// Profile is the resolved runtime.
	Profile *model.RuntimeProfile `json:"profile"`

	// Dir is the absolute install directory.
	Dir string `json:"dir"`

	// URL is the console address to print on success.
	URL string `json:"url"`

	// Fresh reports whether this run created the environment document.
	Fresh bool `json:"fresh"`

	// Services are the core service names the deployment started.
	// Empty when the compose probe failed.
	Services []string `json:"services,omitempty"`

	// Notebooks is the directory the example notebooks were extracted
	// into. Empty when extraction did not complete.
	Notebooks string `json:"notebooks,omitempty"`

	// Phases lists the deployment phases that completed.
	Phases []model.Phase `json:"phases"`

	// Warnings collects every advisory finding of the run.
	Warnings []string `json:"warnings,omitempty"`
}

// runInstall is the main orchestration function for the install
// command.
func runInstall(ctx context.Context, opts *model.InstallOptions, deps installDeps) (*installReport, error) {
	// Step 1: merge the optional install.jsonc defaults under the
	// explicit flags, then validate the combined options.
	fileDefaults, err := defaults.Load(opts.Dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid defaults file", err)
	}
	fileDefaults.Apply(opts)
	if opts.BaseURL == "" {
		opts.BaseURL = model.DefaultBaseURL
	}
	if err := opts.Validate(); err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "invalid options", err)
	}

	dir, err := filepath.Abs(opts.Dir)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to resolve install directory", err)
	}
	log.WithField("dir", dir).Debug("install: directory resolved")

	report := &installReport{Dir: dir}

	// Step 2: preflight. Writability is fatal; disk space is advisory.
	if err := preflight.CheckWritable(dir); err != nil {
		return nil, err
	}
	if warning := preflight.CheckDiskSpace(dir); warning != "" {
		report.Warnings = append(report.Warnings, warning)
	}

	// Step 3: resolve the container runtime. Everything downstream
	// shells out against this frozen profile.
	profile, err := engine.NewResolver(deps.runner).Resolve(ctx, opts.Runtime)
	if err != nil {
		return nil, err
	}
	report.Profile = profile
	log.WithField("profile", profile.String()).Info("install: runtime resolved")

	// Step 4: fetch the deployment files. The compose file is written
	// verbatim; the env template feeds reconciliation. A re-run with an
	// unreachable download base degrades to the local copies.
	client := deps.newFetcher(opts.BaseURL)
	composePath := filepath.Join(dir, model.ComposeFileName)
	envPath := filepath.Join(dir, model.EnvFileName)

	composeData, err := client.Fetch(ctx, model.ComposeFileName)
	if err != nil {
		if !fileExists(composePath) {
			return nil, model.WrapCLIError(model.ExitTemplateFetchFailed,
				"failed to download the compose file", err)
		}
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("compose file download failed, reusing the existing %s: %v", model.ComposeFileName, err))
		composeData, err = os.ReadFile(composePath)
		if err != nil {
			return nil, model.WrapCLIError(model.ExitTemplateFetchFailed,
				"failed to read the existing compose file", err)
		}
	} else if err := envfile.WriteFile(composePath, composeData); err != nil {
		return nil, model.WrapCLIError(model.ExitPermissionDenied, "failed to write the compose file", err)
	}

	var template *envfile.Document
	if templateData, err := client.Fetch(ctx, model.EnvTemplateName); err != nil {
		// Fatal only on a fresh install: with no local document there
		// is nothing to fall back to.
		if !fileExists(envPath) {
			return nil, model.WrapCLIError(model.ExitTemplateFetchFailed,
				"failed to download the environment template", err)
		}
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("environment template download failed, new-key warnings unavailable: %v", err))
	} else {
		template = envfile.Parse(templateData)
	}

	// Step 5: reconcile the environment document.
	overrides := envfile.Overrides{
		HTTPPort:   opts.HTTPPort,
		HTTPSPort:  opts.HTTPSPort,
		Enterprise: opts.Enterprise,
		License:    opts.License,
	}
	if profile.NeedsDatabaseImageOverride() {
		overrides.DatabaseImage = model.ArmDatabaseImage
	}

	reconciled, err := envfile.Reconcile(template, envPath, overrides)
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to reconcile the environment document", err)
	}
	report.Fresh = reconciled.Fresh
	report.Warnings = append(report.Warnings, reconciled.Warnings...)

	// Step 6: audit the ports. Must run after reconciliation (the port
	// values may have just been set) and before any deployment command.
	ports := port.FromDocument(reconciled.Doc)
	if err := port.NewAuditor(port.NewScanner()).Audit(ports); err != nil {
		return nil, err
	}
	log.WithField("ports", ports).Debug("install: port audit passed")

	// The document is persisted only after the audit passed: a conflict
	// abort must leave the directory without a document, so a retry with
	// different port flags is still a fresh install and the flags apply.
	if reconciled.Fresh {
		if err := envfile.Save(reconciled.Doc, envPath); err != nil {
			return nil, model.WrapCLIError(model.ExitPermissionDenied, "failed to write the environment document", err)
		}
		log.WithField("path", envPath).Info("install: environment document created")
	}

	// Step 7: run the deployment sequence. The compose probe and the
	// engine API are both optional inputs — their absence only disables
	// optimizations.
	composeFile, err := compose.Parse(composeData)
	if err != nil {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("compose file probe failed, optional services will not be started: %v", err))
		composeFile = nil
	} else {
		report.Services = composeFile.CoreServices()
	}

	var api *engineapi.Client
	if deps.newAPIClient != nil {
		if c, err := deps.newAPIClient(ctx); err == nil {
			api = c
			defer func() { _ = api.Close() }()
		} else {
			log.WithError(err).Debug("install: engine API unavailable, CLI fallbacks only")
		}
	}

	// The volume-fix helper must run the exact database image the pull
	// fetched, so an operator-customized value wins over the compiled-in
	// reference.
	dbImage := ""
	if values, err := reconciled.Doc.Values(); err == nil {
		dbImage = values[model.KeyDatabaseImage]
	}

	sequencer := deploy.NewSequencer(deps.runner, profile, dir, dbImage, composeFile, api)
	deployReport, err := sequencer.Run(ctx)
	if deployReport != nil {
		report.Phases = deployReport.Completed
		report.Warnings = append(report.Warnings, deployReport.Warnings...)
		for _, phase := range deployReport.Completed {
			if phase == model.PhaseExtractArtifacts {
				report.Notebooks = filepath.Join(dir, model.ArtifactTargetDir)
			}
		}
	}
	if err != nil {
		return nil, err
	}

	// Step 8: derive the console URL for the summary.
	report.URL = consoleURL(reconciled.Doc)
	return report, nil
}

// consoleURL renders the address the operator opens after a successful
// install: HTTPS when the document enables TLS, plain HTTP otherwise.
func consoleURL(doc *envfile.Document) string {
	ports := port.FromDocument(doc)
	if envfile.TLSEnabled(doc) {
		return fmt.Sprintf("https://localhost:%d", ports[len(ports)-1])
	}
	return fmt.Sprintf("http://localhost:%d", ports[0])
}

// fileExists reports whether path names an existing file.
func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// printInstallResult outputs the install summary in text or JSON form.
func printInstallResult(report *installReport) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	if report.Fresh {
		fmt.Println("Rocketgraph installed successfully.")
	} else {
		fmt.Println("Rocketgraph deployment refreshed (existing configuration kept).")
	}
	fmt.Printf("  Runtime:   %s\n", report.Profile.String())
	fmt.Printf("  Directory: %s\n", report.Dir)
	fmt.Printf("  Console:   %s\n", report.URL)
	if len(report.Services) > 0 {
		fmt.Printf("  Services:  %s\n", strings.Join(report.Services, ", "))
	}
	if report.Notebooks != "" {
		fmt.Printf("  Notebooks: %s\n", report.Notebooks)
	}

	if len(report.Warnings) > 0 {
		fmt.Println()
		fmt.Println("Warnings:")
		for _, w := range report.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Println()
	fmt.Printf("Check service state any time with %q.\n", "rocketgraph-install status")
}
