package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pix360/internal/client"
	"pix360/internal/config"
	"pix360/internal/fileutil"
)

const downloadConcurrency = 3

var extensionsByType = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"video/mp4":  ".mp4",
}

type downloadResult struct {
	ID   string
	Path string
	Info client.DownloadInfo
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "download ID...",
		Short: "Save converted assets",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			target := strings.TrimSpace(dir)
			if target == "" {
				target = cfg.Paths.DownloadDir
			} else if target, err = config.ExpandPath(target); err != nil {
				return fmt.Errorf("resolve download dir: %w", err)
			}
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("create download dir: %w", err)
			}
			api, err := ctx.newClient()
			if err != nil {
				return err
			}

			results, err := downloadAll(cmd.Context(), api, target, args)
			out := cmd.OutOrStdout()
			for _, result := range results {
				if result.Path == "" {
					continue
				}
				fmt.Fprintf(out, "Saved %s to %s (%s)\n", result.ID, result.Path, humanize.Bytes(uint64(result.Info.Bytes)))
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", "", "Destination directory (defaults to paths.download_dir)")
	return cmd
}

// downloadAll fetches ids in parallel. Results keep the order of ids; entries
// whose download failed have an empty Path.
func downloadAll(ctx context.Context, api *client.Client, dir string, ids []string) ([]downloadResult, error) {
	results := make([]downloadResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(downloadConcurrency)
	for i, id := range ids {
		results[i].ID = id
		g.Go(func() error {
			path, info, err := downloadOne(gctx, api, dir, id)
			if err != nil {
				return fmt.Errorf("download %s: %w", id, err)
			}
			results[i].Path = path
			results[i].Info = info
			return nil
		})
	}
	return results, g.Wait()
}

func downloadOne(ctx context.Context, api *client.Client, dir, id string) (string, client.DownloadInfo, error) {
	var info client.DownloadInfo
	staging := filepath.Join(dir, fileutil.SafeName(id, "download"))
	err := fileutil.WriteAtomic(staging, func(f *os.File) error {
		var err error
		info, err = api.Download(ctx, id, f)
		return err
	})
	if err != nil {
		return "", client.DownloadInfo{}, err
	}

	final := staging + extensionFor(info.ContentType)
	if err := os.Rename(staging, final); err != nil {
		return "", client.DownloadInfo{}, err
	}
	return final, info, nil
}

func extensionFor(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	if ext, ok := extensionsByType[strings.ToLower(strings.TrimSpace(mediaType))]; ok {
		return ext
	}
	return ".bin"
}
