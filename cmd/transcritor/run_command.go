package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"regexp"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/legadoives/transcritor/internal/archive"
	"github.com/legadoives/transcritor/internal/docconv"
	"github.com/legadoives/transcritor/internal/pipeline"
)

func newRunCommand(verbose *bool) *cobra.Command {
	var (
		outputDir   string
		writeSRT    bool
		epubPath    string
		retryFailed bool
	)

	cmd := &cobra.Command{
		Use:   "run [url|file]...",
		Short: "Process a batch of URLs and local media files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*verbose, false)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			orch, err := a.newOrchestrator()
			if err != nil {
				return err
			}

			for _, arg := range args {
				src, err := sourceFor(arg)
				if err != nil {
					return err
				}
				if src.Kind == pipeline.SourceLocal && a.store() == nil {
					return fmt.Errorf("local file %s needs durable storage, set STORAGE_URL", arg)
				}
				if _, err := orch.Enqueue(src); err != nil {
					return err
				}
			}

			orch.Run(ctx)
			if retryFailed && orch.Counts()[pipeline.StatusFailed] > 0 {
				a.logger.Info("retrying failed jobs")
				orch.RetryFailed(ctx)
			}

			fmt.Println(pipeline.Report(orch.Snapshot()))
			fmt.Println(pipeline.Summary(orch.Counts()))

			results := orch.Results()
			if err := writeResults(outputDir, results, writeSRT); err != nil {
				return err
			}
			if epubPath != "" {
				if err := writeEPUB(epubPath, results); err != nil {
					return err
				}
			}
			if a.cfg.Database.URL != "" {
				if err := archiveResults(ctx, a, results); err != nil {
					a.logger.Warn("archiving failed", "error", err)
				}
			}

			if orch.Counts()[pipeline.StatusFailed] > 0 {
				return fmt.Errorf("batch finished with failures")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "transcricoes", "directory for transcript files")
	cmd.Flags().BoolVar(&writeSRT, "srt", false, "also write SubRip subtitles per job")
	cmd.Flags().StringVar(&epubPath, "epub", "", "package all refined transcripts into one EPUB file")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false, "retry failed jobs once before reporting")

	return cmd
}

// sourceFor treats an argument that exists on disk as a local file and
// everything else as a URL.
func sourceFor(arg string) (pipeline.Source, error) {
	info, err := os.Stat(arg)
	if err != nil {
		if strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://") {
			return pipeline.NewRemoteSource(arg), nil
		}
		return pipeline.Source{}, fmt.Errorf("%s is neither a readable file nor a URL", arg)
	}
	if info.IsDir() {
		return pipeline.Source{}, fmt.Errorf("%s is a directory", arg)
	}

	path := arg
	return pipeline.NewLocalSource(filepath.Base(arg), info.Size(), func() (io.ReadCloser, error) {
		return os.Open(path)
	}), nil
}

func writeResults(dir string, results []*pipeline.Job, writeSRT bool) error {
	if len(results) == 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	for _, job := range results {
		base := filepath.Join(dir, slugify(jobName(job)))
		if err := os.WriteFile(base+".txt", []byte(job.RefinedText), 0o644); err != nil {
			return fmt.Errorf("write transcript: %w", err)
		}
		if writeSRT && len(job.Words) > 0 {
			srt := docconv.GenerateSRT(job.Words, docconv.DefaultWordsPerCue)
			if err := os.WriteFile(base+".srt", []byte(srt), 0o644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
		}
	}
	return nil
}

func writeEPUB(path string, results []*pipeline.Job) error {
	if len(results) == 0 {
		return nil
	}
	book := docconv.Book{Title: "Transcrições", Language: "pt-BR"}
	for _, job := range results {
		title := jobName(job)
		if job.Resolution != nil && job.Resolution.Meta.Title != "" {
			title = job.Resolution.Meta.Title
		}
		book.Chapters = append(book.Chapters, docconv.Chapter{
			Title: title,
			Body:  job.RefinedText,
		})
	}

	data, err := docconv.BuildEPUB(book)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func archiveResults(ctx context.Context, a *app, results []*pipeline.Job) error {
	if len(results) == 0 {
		return nil
	}
	pool, err := archive.NewPool(ctx, a.cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	store := archive.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		return err
	}
	for _, job := range results {
		r := archive.Result{
			JobID:       job.ID,
			Source:      jobName(job),
			Transcript:  job.Transcript,
			RefinedText: job.RefinedText,
		}
		if job.Resolution != nil {
			r.Meta = job.Resolution.Meta
		}
		if err := store.Save(ctx, r); err != nil {
			return err
		}
	}
	a.logger.Info("results archived", "count", len(results))
	return nil
}

func jobName(job *pipeline.Job) string {
	if job.Source.Name != "" {
		return job.Source.Name
	}
	return job.Source.URL
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(s string) string {
	s = strings.ToLower(s)
	s = strings.TrimSuffix(s, filepath.Ext(s))
	s = slugPattern.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if s == "" {
		return "transcricao"
	}
	return s
}
