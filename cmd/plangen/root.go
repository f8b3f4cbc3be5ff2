package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"lg/stride-api/internal/contentgen"
	"lg/stride-api/internal/logger"
	"lg/stride-api/internal/planservice"
	"lg/stride-api/internal/store"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	dbPath  string
	format  string
	userID  int
	now     string
	verbose bool
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:   "plangen",
		Short: "Generate and revise fitness and nutrition plans offline",
		Long: "plangen runs the plan engine against a local SQLite store. Profiles and " +
			"logs are read from YAML or JSON files.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.dbPath, "db", "d", "", "Database path (default: $PLANGEN_DB or ~/.stride/plans.db)")
	root.PersistentFlags().StringVarP(&opts.format, "format", "f", "json", "Output format: json or yaml")
	root.PersistentFlags().IntVarP(&opts.userID, "user", "u", 1, "User ID")
	root.PersistentFlags().StringVar(&opts.now, "now", "", "Override the current time (RFC 3339 or YYYY-MM-DD)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log to stderr")

	root.AddCommand(
		newGenerateCmd(opts),
		newReviseCmd(opts),
		newShowCmd(opts),
		newHistoryCmd(opts),
		newDueCmd(opts),
		newSweepCmd(opts),
	)
	return root
}

func (o *options) getDBPath() string {
	if o.dbPath != "" {
		return o.dbPath
	}
	if env := os.Getenv("PLANGEN_DB"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".stride", "plans.db")
}

func (o *options) clock() (func() time.Time, error) {
	if o.now == "" {
		return func() time.Time { return time.Now().UTC() }, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, o.now); err == nil {
			return func() time.Time { return t.UTC() }, nil
		}
	}
	return nil, fmt.Errorf("invalid --now %q: want RFC 3339 or YYYY-MM-DD", o.now)
}

// openService builds a plan service on the local store. The caller closes
// the returned store.
func (o *options) openService(withContent bool) (*planservice.Service, *store.SQLite, error) {
	now, err := o.clock()
	if err != nil {
		return nil, nil, err
	}
	plans, err := store.NewSQLite(o.getDBPath())
	if err != nil {
		return nil, nil, fmt.Errorf("open store: %w", err)
	}

	log := logger.Nop()
	if o.verbose {
		if log, err = logger.New("development"); err != nil {
			plans.Close()
			return nil, nil, err
		}
	}
	svc := &planservice.Service{
		Plans:  plans,
		Locker: store.NewLocalLocker(),
		Log:    log,
		Now:    now,
	}
	if withContent {
		key := os.Getenv("OPENAI_API_KEY")
		if key == "" {
			plans.Close()
			return nil, nil, fmt.Errorf("--content needs OPENAI_API_KEY: %w", contentgen.ErrNotConfigured)
		}
		svc.Content = contentgen.New(contentgen.Config{
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			APIKey:  key,
			Model:   os.Getenv("OPENAI_MODEL"),
		})
	}
	return svc, plans, nil
}

// readInput decodes a JSON or YAML file into out, chosen by extension.
func readInput(path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(b, out)
	default:
		err = yaml.Unmarshal(b, out)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// printOut writes v in the requested format. YAML goes through JSON first so
// both formats share the same field names.
func printOut(w io.Writer, format string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	switch format {
	case "json":
		_, err = fmt.Fprintln(w, string(b))
		return err
	case "yaml":
		var generic any
		dec := json.NewDecoder(bytes.NewReader(b))
		dec.UseNumber()
		if err := dec.Decode(&generic); err != nil {
			return err
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(yamlNumbers(generic)); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q: want json or yaml", format)
	}
}

// yamlNumbers swaps json.Number for int64 or float64 so YAML prints bare
// numbers instead of quoted strings.
func yamlNumbers(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, e := range t {
			t[k] = yamlNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = yamlNumbers(e)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	}
	return v
}
