package main

import (
	"context"
	"io"
	"net/url"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/careatlas/provision-cli/internal/boundary"
	"github.com/careatlas/provision-cli/internal/config"
	"github.com/careatlas/provision-cli/internal/fetcher"
	"github.com/careatlas/provision-cli/internal/ingest"
)

var (
	loadCodeField string
	loadNameField string
)

var loadCmd = &cobra.Command{
	Use:   "load",
	Short: "Fetch, parse, and merge the source datasets",
	Long: "Reads the census workbook, boundary shapefile, CQC care directory, and\n" +
		"Ofsted childcare register, merges them into one row per upper-tier\n" +
		"authority, and upserts the result into the store.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("load"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		censusPath, err := resolveSource(ctx, cfg.Sources.Census)
		if err != nil {
			return eris.Wrap(err, "resolve census source")
		}
		boundaryPath, err := resolveSource(ctx, cfg.Sources.Boundaries)
		if err != nil {
			return eris.Wrap(err, "resolve boundary source")
		}
		careHomesPath, err := resolveSource(ctx, cfg.Sources.CareHomes)
		if err != nil {
			return eris.Wrap(err, "resolve care homes source")
		}
		childcarePath, err := resolveSource(ctx, cfg.Sources.Childcare)
		if err != nil {
			return eris.Wrap(err, "resolve childcare source")
		}

		if strings.EqualFold(filepath.Ext(boundaryPath), ".zip") {
			boundaryPath, err = extractShapefile(boundaryPath)
			if err != nil {
				return err
			}
		}

		census, err := ingest.ParseCensusWorkbook(censusPath,
			ingest.DefaultCensusOptions(cfg.Sources.Census.Sheet))
		if err != nil {
			return err
		}

		boundaries, err := boundary.LoadShapefile(boundaryPath, boundary.ShapefileOptions{
			CodeField: loadCodeField,
			NameField: loadNameField,
		})
		if err != nil {
			return err
		}

		careHomes, err := parseCSVFile(ctx, careHomesPath, ingest.ParseCareHomes)
		if err != nil {
			return err
		}
		childcare, err := parseCSVFile(ctx, childcarePath, ingest.ParseChildcare)
		if err != nil {
			return err
		}

		records, err := ingest.Merge(census, boundaries, careHomes, childcare, ingest.MergeOptions{
			Exclusions: cfg.Analysis.Exclusions,
		})
		if err != nil {
			return err
		}

		if err := st.UpsertAuthorities(ctx, records); err != nil {
			return err
		}

		zap.L().Info("load complete",
			zap.Int("authorities", len(records)),
			zap.Int("care_homes", len(careHomes)),
			zap.Int("childcare_sites", len(childcare)),
		)
		return nil
	},
}

// parseCSVFile opens a local file and feeds it through one of the streaming
// CSV parsers.
func parseCSVFile[T any](ctx context.Context, path string, parse func(context.Context, io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return parse(ctx, f)
}

// resolveSource returns a local path for a dataset, downloading it first
// when only a URL is configured. Downloads land in the fetch temp dir and
// are reused across runs.
func resolveSource(ctx context.Context, src config.SourceConfig) (string, error) {
	if src.Path != "" {
		return src.Path, nil
	}

	u, err := url.Parse(src.URL)
	if err != nil {
		return "", eris.Wrapf(err, "parse source URL %s", src.URL)
	}
	if err := os.MkdirAll(cfg.Fetch.TempDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create temp dir")
	}

	dest := filepath.Join(cfg.Fetch.TempDir, filepath.Base(u.Path))
	if _, err := os.Stat(dest); err == nil {
		zap.L().Debug("using cached download", zap.String("path", dest))
		return dest, nil
	}

	var n int64
	switch u.Scheme {
	case "http", "https":
		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
			MaxRetries: cfg.Fetch.MaxRetries,
		})
		n, err = f.DownloadToFile(ctx, src.URL, dest)
	case "ftp":
		f := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Timeout: time.Duration(cfg.Fetch.TimeoutSecs) * time.Second,
		})
		n, err = f.DownloadToFile(ctx, src.URL, dest)
	default:
		return "", eris.Errorf("unsupported source URL scheme %q", u.Scheme)
	}
	if err != nil {
		return "", err
	}

	zap.L().Info("downloaded source",
		zap.String("url", src.URL),
		zap.String("path", dest),
		zap.Int64("bytes", n),
	)
	return dest, nil
}

// extractShapefile unpacks a boundary zip and returns the .shp member.
func extractShapefile(zipPath string) (string, error) {
	destDir := filepath.Join(cfg.Fetch.TempDir, strings.TrimSuffix(filepath.Base(zipPath), ".zip"))
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", eris.Wrap(err, "create extract dir")
	}
	files, err := fetcher.ExtractZIP(zipPath, destDir)
	if err != nil {
		return "", err
	}
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".shp") {
			return f, nil
		}
	}
	return "", eris.Errorf("no .shp member in %s", zipPath)
}

func init() {
	loadCmd.Flags().StringVar(&loadCodeField, "code-field", "CTYUA23CD", "shapefile attribute carrying the GSS code")
	loadCmd.Flags().StringVar(&loadNameField, "name-field", "CTYUA23NM", "shapefile attribute carrying the authority name")
	rootCmd.AddCommand(loadCmd)
}
