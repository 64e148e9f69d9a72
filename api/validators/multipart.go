package validators

import (
	"io"
	"net/http"
	"strings"

	pkgerrors "github.com/adsparkhq/adspark-backend/pkg/errors"
)

const (
	multipartMemoryLimit = 32 << 20
	maxUploadBytes       = 64 << 20
)

// GenerateImageForm is the decoded multipart payload for image generation.
// Callers supply the product either as an uploaded file or a hosted URL.
type GenerateImageForm struct {
	Description string
	Size        string
	ImageURL    string
	AvatarURL   string
	FileName    string
	FileData    []byte
}

// ParseGenerateImageForm decodes and validates the generation form.
func ParseGenerateImageForm(r *http.Request) (*GenerateImageForm, error) {
	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid multipart form")
	}

	form := &GenerateImageForm{
		Description: strings.TrimSpace(r.FormValue("description")),
		Size:        strings.TrimSpace(r.FormValue("size")),
		ImageURL:    strings.TrimSpace(r.FormValue("image_url")),
		AvatarURL:   strings.TrimSpace(r.FormValue("avatar_url")),
	}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if header.Size > maxUploadBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploaded file too large")
		}
		data, readErr := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if readErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, readErr, "read uploaded file")
		}
		if len(data) > maxUploadBytes {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "uploaded file too large")
		}
		form.FileName = header.Filename
		form.FileData = data
	case err == http.ErrMissingFile:
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read uploaded file")
	}

	if form.Description == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description is required")
	}
	if form.ImageURL == "" && len(form.FileData) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "either file or image_url is required")
	}
	return form, nil
}
