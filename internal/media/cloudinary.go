// Package media talks to the hosted image provider that stores the uploaded
// originals and renders the generative transformations.
package media

import (
	"context"
	"fmt"
	"strings"

	"imaginify/internal/apperror"
	"imaginify/internal/transformation"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/admin/search"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/rs/zerolog"
)

// maxSearchResults is the provider's page cap for search.
const maxSearchResults = 500

// Asset is an image stored at the provider.
type Asset struct {
	PublicID  string `json:"public_id"`
	SecureURL string `json:"secure_url"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// NewCloudinary builds a provider client scoped to folder.
func NewCloudinary(cloudName, apiKey, apiSecret, folder string, logger zerolog.Logger) (*Cloudinary, error) {
	if cloudName == "" {
		return nil, apperror.MissingConfig("CLOUDINARY_CLOUD_NAME")
	}
	cld, err := cloudinary.NewFromParams(cloudName, apiKey, apiSecret)
	if err != nil {
		return nil, fmt.Errorf("create cloudinary client: %w", err)
	}
	cld.Config.URL.Secure = true
	cld.Config.URL.Analytics = false
	return &Cloudinary{
		cld:    cld,
		folder: folder,
		logger: logger.With().Str("component", "Cloudinary").Logger(),
	}, nil
}

// Upload asks the provider to fetch sourceURL into the folder.
func (c *Cloudinary) Upload(ctx context.Context, sourceURL string) (Asset, error) {
	res, err := c.cld.Upload.Upload(ctx, sourceURL, uploader.UploadParams{Folder: c.folder})
	if err != nil {
		c.logger.Error().Err(err).Msg("Upload request failed")
		return Asset{}, apperror.Upstream("image upload failed", err)
	}
	if res.Error.Message != "" {
		c.logger.Error().Str("provider_error", res.Error.Message).Msg("Upload rejected")
		return Asset{}, apperror.Upstream("image upload rejected: "+res.Error.Message, nil)
	}
	return Asset{
		PublicID:  res.PublicID,
		SecureURL: res.SecureURL,
		Width:     res.Width,
		Height:    res.Height,
	}, nil
}

// SearchExpression scopes query to folder.
func SearchExpression(folder, query string) string {
	expr := "folder=" + folder
	if q := strings.TrimSpace(query); q != "" {
		expr += " AND " + q
	}
	return expr
}

// SearchPublicIDs returns the ids of the folder's assets matching query.
func (c *Cloudinary) SearchPublicIDs(ctx context.Context, query string) ([]string, error) {
	res, err := c.cld.Admin.Search(ctx, search.Query{
		Expression: SearchExpression(c.folder, query),
		MaxResults: maxSearchResults,
	})
	if err != nil {
		c.logger.Error().Err(err).Str("query", query).Msg("Search request failed")
		return nil, apperror.Upstream("image search failed", err)
	}
	if res.Error.Message != "" {
		c.logger.Error().Str("provider_error", res.Error.Message).Msg("Search rejected")
		return nil, apperror.Upstream("image search rejected: "+res.Error.Message, nil)
	}
	ids := make([]string, 0, len(res.Assets))
	for _, a := range res.Assets {
		ids = append(ids, a.PublicID)
	}
	return ids, nil
}

// TransformationURL renders the delivery URL of publicID with the effects
// of cfg applied.
func (c *Cloudinary) TransformationURL(publicID string, width, height int, cfg transformation.Config) (string, error) {
	img, err := c.cld.Image(publicID)
	if err != nil {
		return "", fmt.Errorf("build asset %s: %w", publicID, err)
	}
	img.Transformation = strings.Join(cfg.Effects(width, height), "/")
	url, err := img.String()
	if err != nil {
		return "", fmt.Errorf("render url for %s: %w", publicID, err)
	}
	return url, nil
}

// Destroy removes an asset. A missing asset is not an error.
func (c *Cloudinary) Destroy(ctx context.Context, publicID string) error {
	res, err := c.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return apperror.Upstream("image delete failed", err)
	}
	if res.Error.Message != "" {
		return apperror.Upstream("image delete rejected: "+res.Error.Message, nil)
	}
	return nil
}
