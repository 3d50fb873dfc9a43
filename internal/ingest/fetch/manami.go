package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/go-github/v57/github"
	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/halcyonlabs/mediarec/internal/logging"
)

const (
	manamiOwner = "manami-project"
	manamiRepo  = "anime-offline-database"

	// ManamiAssetName is the database asset attached to each release.
	ManamiAssetName = "anime-offline-database.json"
)

// DownloadManamiDatabase fetches the anime offline database asset from the
// latest non-draft GitHub release and writes it to destPath. The token is
// optional; unauthenticated requests work but hit lower rate limits.
func DownloadManamiDatabase(ctx context.Context, token, destPath string, logger *logging.Logger) error {
	httpClient := http.DefaultClient
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
	}
	client := github.NewClient(httpClient)

	releases, _, err := client.Repositories.ListReleases(ctx, manamiOwner, manamiRepo, &github.ListOptions{PerPage: 10})
	if err != nil {
		return fmt.Errorf("listing releases: %w", err)
	}

	var asset *github.ReleaseAsset
	for _, release := range releases {
		if release.GetDraft() || len(release.Assets) == 0 {
			continue
		}
		for _, a := range release.Assets {
			if a.GetName() == ManamiAssetName {
				asset = a
				break
			}
		}
		if asset != nil {
			logger.Info(ctx, "found database release",
				zap.String("release", release.GetTagName()),
				zap.String("asset", asset.GetName()))
			break
		}
	}
	if asset == nil {
		return fmt.Errorf("no release carries asset %s", ManamiAssetName)
	}

	body, _, err := client.Repositories.DownloadReleaseAsset(ctx, manamiOwner, manamiRepo, asset.GetID(), httpClient)
	if err != nil {
		return fmt.Errorf("downloading asset: %w", err)
	}
	defer body.Close()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return fmt.Errorf("creating destination directory: %w", err)
	}
	out, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	defer out.Close()

	n, err := io.Copy(out, body)
	if err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}

	logger.Info(ctx, "database downloaded",
		zap.String("path", destPath),
		zap.Int64("bytes", n))
	return nil
}
