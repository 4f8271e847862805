// Package storage uploads user images to Cloudinary.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	cld "github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

// MaxImageSize is the largest accepted upload
const MaxImageSize = 10 << 20 // 10 MB

var (
	ErrNotConfigured    = errors.New("image storage is not configured")
	ErrUnsupportedImage = errors.New("only jpeg, png and webp images are accepted")
	ErrImageTooLarge    = errors.New("image exceeds 10MB")
)

var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Uploader stores an image and returns its public URL
type Uploader interface {
	UploadImage(ctx context.Context, folder, name string, data []byte) (string, error)
}

// CloudinaryUploader uploads images with the Cloudinary upload API
type CloudinaryUploader struct {
	cld        *cld.Cloudinary
	rootFolder string
}

// NewCloudinaryUploader builds an uploader from a cloudinary:// URL.
// An empty URL yields an uploader that rejects every upload with ErrNotConfigured.
func NewCloudinaryUploader(cloudinaryURL, rootFolder string) (*CloudinaryUploader, error) {
	if cloudinaryURL == "" {
		return &CloudinaryUploader{rootFolder: rootFolder}, nil
	}

	cloud, err := cld.NewFromURL(cloudinaryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cloudinary: %w", err)
	}
	return &CloudinaryUploader{cld: cloud, rootFolder: rootFolder}, nil
}

func (u *CloudinaryUploader) UploadImage(ctx context.Context, folder, name string, data []byte) (string, error) {
	if u.cld == nil {
		return "", ErrNotConfigured
	}

	res, err := u.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:       u.rootFolder + "/" + folder,
		PublicID:     name,
		ResourceType: "image",
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image: %w", err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image: %s", res.Error.Message)
	}

	return res.SecureURL, nil
}

// ReadImage reads at most MaxImageSize bytes and checks the content is an accepted image type
func ReadImage(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(data) > MaxImageSize {
		return nil, ErrImageTooLarge
	}
	if !allowedContentTypes[http.DetectContentType(data)] {
		return nil, ErrUnsupportedImage
	}
	return data, nil
}

// ReadFormImage extracts the named file field from a multipart request
func ReadFormImage(w http.ResponseWriter, r *http.Request, field string) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxImageSize+1<<20)
	if err := r.ParseMultipartForm(MaxImageSize); err != nil {
		return nil, ErrImageTooLarge
	}
	file, _, err := r.FormFile(field)
	if err != nil {
		return nil, fmt.Errorf("missing %q file field: %w", field, err)
	}
	defer file.Close()

	return ReadImage(file)
}
