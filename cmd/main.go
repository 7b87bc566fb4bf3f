package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"dualfm/internal/config"
	"dualfm/internal/fault"
	"dualfm/internal/logging"
	"dualfm/internal/pane"
	sshclient "dualfm/internal/ssh"
	"dualfm/internal/storage/azure"
	"dualfm/internal/storage/local"
	"dualfm/internal/storage/objstore"
	"dualfm/internal/storage/remote"
	s3store "dualfm/internal/storage/s3"
	"dualfm/internal/transfer"
	"dualfm/internal/ui"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// shutdownGrace bounds how long the program waits for running transfers
// after the UI has exited.
const shutdownGrace = 10 * time.Second

// errPromptCancelled is returned when the user aborts the password prompt.
var errPromptCancelled = errors.New("password prompt cancelled")

type options struct {
	left       string
	right      string
	region     string
	bucket     string
	endpoint   string
	azureConn  string
	configPath string
	logLevel   string
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "dualfm",
		Short: "Dual-pane file manager for local, S3, Azure Blob and SSH storage",
		Long: `dualfm shows two storage locations side by side and moves, copies or
deletes marked files between them.

Pane specs:
  fs[:<path>]                    local filesystem (default: working directory)
  s3[:<bucket>[/<prefix>]]       S3 bucket (default: [s3] bucket or --s3-bucket-name)
  azure:<container>[/<prefix>]   Azure Blob container
  ssh:[<user>@]<host>[:<path>]   remote host over SSH, aliases from ~/.ssh/config
  mem[:<name>]                   in-memory scratch store`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, path, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, path)
		},
	}

	bindFlags(root, opts)

	root.AddCommand(newVersionCmd())
	return root
}

func bindFlags(cmd *cobra.Command, opts *options) {
	flags := cmd.Flags()
	flags.StringVarP(&opts.left, "left", "l", "", "Left pane spec (overrides config)")
	flags.StringVarP(&opts.right, "right", "r", "", "Right pane spec (overrides config)")
	flags.StringVar(&opts.region, "aws-region", "", "AWS region for S3 panes")
	flags.StringVar(&opts.bucket, "s3-bucket-name", "", "Bucket for s3 panes without one")
	flags.StringVar(&opts.endpoint, "s3-endpoint", "", "Custom S3 endpoint (MinIO, localstack), implies path-style")
	flags.StringVar(&opts.azureConn, "azure-connection-string", "", "Azure Storage connection string")
	flags.StringVar(&opts.configPath, "config", "", "Configuration file path (default ~/.config/dualfm/config.toml)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error, off")
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dualfm %s\n", version)
		},
	}
}

// loadConfig reads the config file and lets explicitly set flags override it.
func loadConfig(cmd *cobra.Command, opts *options) (*config.Config, string, error) {
	path := opts.configPath
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return nil, "", err
	}

	changed := cmd.Flags().Changed
	if changed("left") {
		cfg.Left.Spec = opts.left
	}
	if changed("right") {
		cfg.Right.Spec = opts.right
	}
	if changed("aws-region") {
		cfg.S3.Region = opts.region
	}
	if changed("s3-bucket-name") {
		cfg.S3.Bucket = opts.bucket
	}
	if changed("s3-endpoint") {
		cfg.S3.Endpoint = opts.endpoint
		cfg.S3.PathStyle = true
	}
	if changed("azure-connection-string") {
		cfg.Azure.ConnectionString = opts.azureConn
	}
	if changed("log-level") {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, path, nil
}

func run(ctx context.Context, cfg *config.Config, cfgPath string) error {
	if lf, err := logging.Setup(logging.Path(), logging.ParseLevel(cfg.LogLevel)); err != nil {
		fmt.Fprintln(os.Stderr, "Could not open debug log:", err)
	} else {
		defer func() { _ = lf.Close() }()
		config.FixOwnership(logging.Path())
	}
	logging.L().Info().Str("version", version).Str("log", logging.Path()).Msg("dualfm starting")

	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logging.L().Warn().Err(err).Msg("close backend")
			}
		}
	}()

	sshHosts := config.LoadSSHConfig()
	build := func(name, raw string) (*pane.Pane, error) {
		spec, err := config.ParsePaneSpec(raw)
		if err != nil {
			return nil, err
		}
		p, closer, err := buildPane(ctx, name, spec, cfg, sshHosts)
		if err != nil {
			return nil, fmt.Errorf("%s pane %s: %w", name, spec, err)
		}
		if closer != nil {
			closers = append(closers, closer)
		}
		cfg.AddRecent(spec.String())
		return p, nil
	}

	left, err := build("left", cfg.Left.Spec)
	if err != nil {
		return err
	}
	right, err := build("right", cfg.Right.Spec)
	if err != nil {
		return err
	}
	if err := config.SaveTo(cfgPath, cfg); err != nil {
		logging.L().Warn().Err(err).Str("path", cfgPath).Msg("could not save config")
	}

	stack := fault.NewStack()
	runner := transfer.NewRunner(stack)
	for _, p := range []*pane.Pane{left, right} {
		if err := p.Refresh(ctx); err != nil {
			stack.Push(p.Domain(), err)
		}
	}

	model := ui.NewDualPaneModel(ctx, left, right, stack, runner)
	prog := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}

	if !waitForTasks(runner, shutdownGrace) {
		logging.L().Warn().Int64("in_flight", runner.InFlight()).Msg("exiting with transfers still running")
	}
	logging.L().Info().Msg("dualfm stopped")
	return nil
}

// waitForTasks waits up to grace for the runner to drain. It reports whether
// every task finished.
func waitForTasks(runner *transfer.Runner, grace time.Duration) bool {
	done := make(chan struct{})
	go func() {
		runner.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(grace):
		return false
	}
}

// buildPane creates the backend described by spec and a pane over it. The
// returned closer, when not nil, releases the backend's connection.
func buildPane(ctx context.Context, name string, spec config.PaneSpec, cfg *config.Config, sshHosts []config.SSHHost) (*pane.Pane, io.Closer, error) {
	switch spec.Provider {
	case config.ProviderLocal:
		dir, err := local.StartDir(spec.Target)
		if err != nil {
			return nil, nil, err
		}
		return pane.New(name, local.New(), dir), nil, nil

	case config.ProviderS3:
		bucket, prefix := objstore.SplitLocation(spec.Target)
		if bucket == "" {
			bucket = cfg.S3.Bucket
		}
		client, err := s3store.New(ctx, s3store.Config{
			Bucket:    bucket,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			Profile:   cfg.S3.Profile,
			PathStyle: cfg.S3.PathStyle,
			AccessKey: cfg.S3.AccessKeyID,
			SecretKey: cfg.S3.SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		return pane.New(name, objstore.New(client), prefix), nil, nil

	case config.ProviderAzure:
		container, prefix := objstore.SplitLocation(spec.Target)
		client, err := azure.New(azure.Config{
			Container:        container,
			ConnectionString: cfg.Azure.ConnectionString,
			AccountURL:       cfg.Azure.AccountURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return pane.New(name, objstore.New(client), prefix), nil, nil

	case config.ProviderMemory:
		container, prefix := objstore.SplitLocation(spec.Target)
		if container == "" {
			container = "scratch"
		}
		return pane.New(name, objstore.New(objstore.NewMemoryClient(container)), prefix), nil, nil

	case config.ProviderSSH:
		return buildSSHPane(name, spec, cfg, sshHosts)
	}
	return nil, nil, fmt.Errorf("unsupported provider %q", spec.Provider)
}

func buildSSHPane(name string, spec config.PaneSpec, cfg *config.Config, sshHosts []config.SSHHost) (*pane.Pane, io.Closer, error) {
	user, host, dir := spec.SSHTarget()
	login := config.ResolveSSHLogin(sshHosts, user, host, cfg.SSH)
	if login.Alias != "" {
		logging.L().Debug().Str("alias", login.Alias).Str("host", login.Host).Msg("matched ssh config host")
	}

	var password string
	if cfg.SSH.AskPassword {
		pw, err := promptPassword(login)
		if err != nil {
			return nil, nil, err
		}
		password = pw
	}

	methods, agentCloser := sshclient.AuthMethods(login.KeyPath, password)
	if len(methods) == 0 {
		_ = agentCloser.Close()
		return nil, nil, fmt.Errorf("no SSH credentials for %s (set [ssh] key_path or ask_password)", login.Addr())
	}
	hk, err := sshclient.HostKeyCallback(cfg.SSH.KnownHosts, cfg.SSH.StrictHostKeys)
	if err != nil {
		_ = agentCloser.Close()
		return nil, nil, err
	}
	client, err := sshclient.New(login.Host, login.Port, login.User, methods, hk)
	if err != nil {
		_ = agentCloser.Close()
		return nil, nil, err
	}

	if dir == "" {
		if home, err := client.Home(); err == nil && home != "" {
			dir = home
		} else {
			dir = "/"
		}
	}
	return pane.New(name, remote.New(client), dir), closerFunc(func() error {
		return errors.Join(client.Close(), agentCloser.Close())
	}), nil
}

// promptPassword runs a small full-screen prompt before the browser starts.
func promptPassword(login config.SSHLogin) (string, error) {
	prog := tea.NewProgram(ui.NewPasswordPrompt(login.User, login.Host), tea.WithAltScreen())
	final, err := prog.Run()
	if err != nil {
		return "", err
	}
	pw, ok := final.(ui.PasswordPrompt).Password()
	if !ok {
		return "", errPromptCancelled
	}
	return pw, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
