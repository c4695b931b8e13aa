// Package media uploads review attachments straight to the platform's file
// storage using short-lived upload URLs.
package media

import (
	"context"
	"fmt"

	"github.com/fjod/storefront/internal/commerce"
)

// ReviewMediaFolder is where review uploads land in file storage.
const ReviewMediaFolder = "product-reviews-media"

// URLIssuer hands out a URL the file bytes can be PUT to.
type URLIssuer interface {
	UploadURL(ctx context.Context, fileName, mimeType string) (string, error)
}

// FilesIssuer issues public upload URLs in the review media folder.
type FilesIssuer struct {
	files commerce.FilesAPI
}

func NewFilesIssuer(files commerce.FilesAPI) *FilesIssuer {
	return &FilesIssuer{files: files}
}

func (i *FilesIssuer) UploadURL(ctx context.Context, fileName, mimeType string) (string, error) {
	u, err := i.files.GenerateUploadURL(ctx, mimeType, commerce.UploadOptions{
		FileName: fileName,
		FilePath: ReviewMediaFolder,
		Private:  false,
	})
	if err != nil {
		return "", fmt.Errorf("generate upload url for %s: %w", fileName, err)
	}
	return u, nil
}
