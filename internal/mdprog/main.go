// Public domain.

// Package mdprog is the mapds command.
package mdprog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/soniakeys/mapds/internal/dataset"
	"github.com/soniakeys/mapds/internal/fit"
	"github.com/soniakeys/mapds/internal/mdlog"
)

const versionString = "mapds version 0.3 Go source."
const copyrightString = "Public domain."

// configuration keys, also the names of persistent flags.
const (
	keyOutDir    = "outdir"
	keyPrefix    = "prefix"
	keyOverwrite = "overwrite"
	keyLogLevel  = "log-level"
	keySeed      = "seed"
	keyModels    = "models"
)

func Main() {
	defer exit.Handler()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		exit.Log(err)
	}
}

// program holds configuration shared by subcommands.
type program struct {
	v       *viper.Viper
	cfgFile string
	log     *slog.Logger
}

func newRootCmd() *cobra.Command {
	p := &program{v: viper.New(), log: slog.New(slog.DiscardHandler)}
	root := &cobra.Command{
		Use:   "mapds",
		Short: "Reduce, inspect and fit gamma-ray map datasets",
		Long: `mapds works on collections of map datasets written as a
<prefix>_datasets.yaml index, one FITS file per dataset and an optional
<prefix>_models.yaml model file.  Commands that produce datasets write a
new collection to --outdir under --prefix.`,
		Version:       versionString + "\n" + copyrightString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return p.configure(cmd)
		},
	}
	root.SetVersionTemplate("{{.Version}}\n")
	pf := root.PersistentFlags()
	pf.StringVar(&p.cfgFile, "config", "", "config file (default is ./mapds.yaml or $HOME/mapds.yaml)")
	pf.String(keyOutDir, ".", "output directory")
	pf.String(keyPrefix, "mapds", "output file prefix")
	pf.Bool(keyOverwrite, false, "overwrite existing output files")
	pf.String(keyLogLevel, "info", "log level: debug, info, warn or error")
	pf.Uint64(keySeed, 0, "random seed; dataset i of a collection uses seed+i")
	pf.String(keyModels, "", "models file (default is the index's <prefix>_models.yaml if present)")
	if err := p.v.BindPFlags(pf); err != nil {
		panic(err)
	}
	root.AddCommand(
		p.infoCmd(),
		p.stackCmd(),
		p.imageCmd(),
		p.cutoutCmd(),
		p.fakeCmd(),
		p.spectrumCmd(),
		p.fitCmd(),
		p.hdf5Cmd(),
		p.plotCmd(),
	)
	return root
}

// configure reads the config file and environment and sets up logging.
func (p *program) configure(cmd *cobra.Command) error {
	v := p.v
	if p.cfgFile != "" {
		v.SetConfigFile(p.cfgFile)
	} else {
		v.SetConfigName("mapds")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}
	v.SetEnvPrefix("MAPDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if p.cfgFile != "" || !errors.As(err, &nf) {
			return err
		}
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString(keyLogLevel))); err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	p.log = mdlog.New(cmd.ErrOrStderr(), level)
	dataset.SetLogger(p.log.WithGroup("dataset"))
	fit.SetLogger(p.log.WithGroup("fit"))
	if f := v.ConfigFileUsed(); f != "" {
		p.log.Debug("config", "file", f)
	}
	return nil
}

// modelsPath is the configured models file, or the file that Datasets.Write
// would have written next to index, if it exists.
func (p *program) modelsPath(index string) string {
	if m := p.v.GetString(keyModels); m != "" {
		return m
	}
	dir, base := filepath.Split(index)
	if prefix, ok := strings.CutSuffix(base, dataset.IndexFilename("")); ok {
		m := filepath.Join(dir, dataset.ModelsFilename(prefix))
		if _, err := os.Stat(m); err == nil {
			return m
		}
	}
	return ""
}

// read reads the collection named by an index file.
func (p *program) read(index string) (dataset.Datasets, error) {
	ds, err := dataset.ReadDatasets(index, p.modelsPath(index))
	if err != nil {
		return nil, err
	}
	p.log.Debug("read", "index", index, "datasets", len(ds))
	return ds, nil
}

// write writes a collection to the configured directory and prefix.
func (p *program) write(ds dataset.Datasets) error {
	dir := p.v.GetString(keyOutDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	prefix := p.v.GetString(keyPrefix)
	if err := ds.Write(dir, prefix, p.v.GetBool(keyOverwrite)); err != nil {
		return err
	}
	p.log.Info("wrote "+filepath.Join(dir, dataset.IndexFilename(prefix)), "datasets", len(ds))
	return nil
}
